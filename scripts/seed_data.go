//go:build ignore

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/database"
	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/internal/service"
)

var (
	firstNames = []string{"Rahul", "Priya", "Amit", "Sneha", "Vikram", "Anita", "Raj", "Neha", "Suresh", "Kavita",
		"Arun", "Deepa", "Kiran", "Meera", "Sanjay", "Ritu", "Vijay", "Pooja", "Manoj", "Swati"}
	lastNames    = []string{"Kumar", "Sharma", "Patel", "Singh", "Reddy", "Rao", "Gupta", "Joshi", "Nair", "Menon"}
	vehicleTypes = []string{models.VehicleTypeHatchback, models.VehicleTypeSedan, models.VehicleTypeSUV, models.VehicleTypeBike}
	carModels    = []string{"Swift", "Dzire", "Innova", "Ertiga", "Activa", "Pulsar"}
)

func randomName() string {
	return fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))])
}

func main() {
	logger := logging.NewLogger("info")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db.DB); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	users := service.NewUserService(repository.NewPostgresGateway(db.DB), nil, logger)

	var riderIDs []string
	for i := 0; i < 50; i++ {
		rider, err := users.RegisterRider(ctx, &models.CreateRiderRequest{
			Phone:          fmt.Sprintf("98%08d", rand.Intn(100000000)),
			Name:           randomName(),
			PaymentMethods: []string{models.PaymentMethods[rand.Intn(len(models.PaymentMethods))]},
		})
		if err != nil {
			logger.Warn("failed to create rider", "error", err)
			continue
		}
		riderIDs = append(riderIDs, rider.ID)
	}

	var driverIDs []string
	for i := 0; i < 100; i++ {
		driver, err := users.RegisterDriver(ctx, &models.CreateDriverRequest{
			Phone:         fmt.Sprintf("91%08d", rand.Intn(100000000)),
			Name:          randomName(),
			LicenseNumber: fmt.Sprintf("DL%07d", rand.Intn(10000000)),
			Vehicle: models.Vehicle{
				PlateNumber: fmt.Sprintf("KA%02d%c%c%04d", rand.Intn(99), 'A'+rand.Intn(26), 'A'+rand.Intn(26), rand.Intn(10000)),
				Type:        vehicleTypes[rand.Intn(len(vehicleTypes))],
				Model:       carModels[rand.Intn(len(carModels))],
			},
		})
		if err != nil {
			logger.Warn("failed to create driver", "error", err)
			continue
		}
		driverIDs = append(driverIDs, driver.ID)
	}

	if len(riderIDs) == 0 || len(driverIDs) == 0 {
		logger.Error("nothing was seeded")
		os.Exit(1)
	}
	logger.Info("seed complete",
		"riders", len(riderIDs),
		"drivers", len(driverIDs),
		"sample_rider", riderIDs[0],
		"sample_driver", driverIDs[0],
	)
}
