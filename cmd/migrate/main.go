package main

import (
	"log"

	"marketplace-chat/config"
	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/pkg/database"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&conversation.Conversation{},
		&message.Message{},
		&message.Attachment{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	// Partial unique index and anything else AutoMigrate cannot express.
	if err := database.ApplyRawMigrations(db, "migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	log.Println("Migrations applied")
}
