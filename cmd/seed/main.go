package main

import (
	"fmt"
	"log"
	"os"

	"github.com/auma/compliance-gate/internal/config"
	"github.com/auma/compliance-gate/internal/database"
	"github.com/auma/compliance-gate/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	fmt.Println("✓ Database migrated successfully")

	locationID := os.Getenv("SEED_LOCATION_ID")
	if locationID == "" {
		locationID = "demo-location"
	}

	mlos := []models.MloUser{
		{
			ID:            "mlo-demo-1",
			LocationID:    locationID,
			Name:          "Jane Smith",
			Email:         "jane.smith@example.com",
			Phone:         "+15555550101",
			LicenseNumber: "NMLS-100001",
		},
		{
			ID:            "mlo-demo-2",
			LocationID:    locationID,
			Name:          "Carlos Rivera",
			Email:         "carlos.rivera@example.com",
			Phone:         "+15555550102",
			LicenseNumber: "NMLS-100002",
		},
	}
	for _, mlo := range mlos {
		result := db.Where("id = ?", mlo.ID).FirstOrCreate(&mlo)
		if result.Error != nil {
			log.Printf("Failed to seed MLO %s: %v", mlo.Name, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created MLO: %s (%s)\n", mlo.Name, mlo.LicenseNumber)
		} else {
			fmt.Printf("  MLO already exists: %s\n", mlo.Name)
		}
	}

	assign := func(id string) *string { return &id }
	loans := []models.Loan{
		{ID: "loan-demo-1", LocationID: locationID, LoanNumber: "LN-1001", BorrowerName: "John Doe", AssignedMloID: assign("mlo-demo-1")},
		{ID: "loan-demo-2", LocationID: locationID, LoanNumber: "LN-1002", BorrowerName: "Maria Garcia", AssignedMloID: assign("mlo-demo-2")},
		// Unassigned: escalations on this loan exercise the fallback alert path.
		{ID: "loan-demo-3", LocationID: locationID, LoanNumber: "LN-1003", BorrowerName: "Sam Lee"},
	}
	for _, loan := range loans {
		result := db.Where("id = ?", loan.ID).FirstOrCreate(&loan)
		if result.Error != nil {
			log.Printf("Failed to seed loan %s: %v", loan.LoanNumber, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created loan: %s for %s\n", loan.LoanNumber, loan.BorrowerName)
		} else {
			fmt.Printf("  Loan already exists: %s\n", loan.LoanNumber)
		}
	}

	fmt.Println("\n✓ Database seeding completed successfully!")
}
