package main

import (
	"gorm.io/gorm"

	"home-services-server/models"
)

// seedWorkers inserts a small demo worker pool on an empty database so the
// matching endpoint has something to return in development.
func seedWorkers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Worker{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	workers := []models.Worker{
		{
			Name:        "Marcus Reed",
			Phone:       "4105550142",
			Email:       "marcus.reed@example.com",
			CoverageZip: "21201,21202,21230",
			City:        "Baltimore",
			Skills:      "plumbing,drain cleaning,water heater",
			IsActive:    true,
		},
		{
			Name:        "Dana Okafor",
			Phone:       "4105550177",
			Email:       "dana.okafor@example.com",
			City:        "Towson",
			Skills:      "electrical,panel upgrades,lighting",
			IsActive:    true,
		},
		{
			Name:        "Luis Herrera",
			Phone:       "4435550119",
			Email:       "luis.herrera@example.com",
			CoverageZip: "21228,21227,21043",
			City:        "Catonsville",
			Skills:      "painting,drywall",
			IsActive:    true,
		},
		{
			// Generalist with no coverage constraints: available everywhere.
			Name:     "Priya Natarajan",
			Phone:    "4105550163",
			Email:    "priya.natarajan@example.com",
			IsActive: true,
		},
		{
			Name:        "Tom Gallagher",
			Phone:       "4435550185",
			Email:       "tom.gallagher@example.com",
			CoverageZip: "21401,21403,21122",
			City:        "Annapolis",
			Skills:      "hvac,furnace repair,ac",
			IsActive:    true,
		},
	}

	return db.Create(&workers).Error
}
