package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"
	"fsms/backend/internal/seeders"
	"fsms/backend/internal/utils"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term" // For password masking
)

// readInput reads a line of text from the console.
func readInput(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readInputDefault lê uma linha, retornando def quando vazia.
func readInputDefault(reader *bufio.Reader, prompt, def string) string {
	if v := readInput(reader, fmt.Sprintf("%s [%s]: ", prompt, def)); v != "" {
		return v
	}
	return def
}

// readPassword reads a password from the console, masking the input.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

func main() {
	config.LoadConfig()
	phxlog.Init(config.Cfg.LogLevel, config.Cfg.Environment)
	defer phxlog.Sync()

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("--- FSMS Risk Engine Setup ---")

	// 1. Database Configuration (valores do ambiente como padrão)
	fmt.Println("\n--- Database Configuration ---")
	cfg := &config.Cfg
	cfg.DBHost = readInputDefault(reader, "Database Host", cfg.DBHost)
	cfg.DBPort = readInputDefault(reader, "Database Port", cfg.DBPort)
	cfg.DBUser = readInputDefault(reader, "Database User", cfg.DBUser)
	if pw, err := readPassword("Database Password (empty keeps DB_PASSWORD): "); err != nil {
		log.Fatalf("Failed to read database password: %v", err)
	} else if pw != "" {
		cfg.DBPassword = pw
	}
	cfg.DBName = readInputDefault(reader, "Database Name", cfg.DBName)

	fmt.Println("Connecting to database...")
	if err := database.ConnectDB(cfg.DSN(), false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()
	fmt.Println("Successfully connected to the database.")

	if err := utils.InitEncryptionKey(); err != nil {
		log.Fatalf("Failed to initialize encryption key: %v", err)
	}

	// 2. Migrations and global settings
	fmt.Println("\n--- Running Database Migrations ---")
	if err := seeders.FullSetup(db, cfg.MigrationsPath); err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	fmt.Println("Database migrations and system settings completed successfully.")

	// 3. First Organization Setup
	fmt.Println("\n--- Creating First Organization ---")
	orgName := readInput(reader, "Enter the name for the first organization (plant or company): ")
	if orgName == "" {
		orgName = "Default Organization"
		fmt.Printf("No organization name entered, using default: %s\n", orgName)
	}

	organization := models.Organization{Name: orgName}
	if err := db.Create(&organization).Error; err != nil {
		log.Fatalf("Failed to create organization: %v", err)
	}
	fmt.Printf("Organization '%s' created successfully with ID: %s\n", organization.Name, organization.ID)

	// 4. Admin User Creation
	fmt.Println("\n--- Creating Admin User ---")
	adminName := readInput(reader, "Enter Admin User Name: ")
	adminEmail := strings.ToLower(readInput(reader, "Enter Admin User Email: "))

	var adminPassword string
	for {
		var err error
		adminPassword, err = readPassword("Enter Admin User Password: ")
		if err != nil {
			log.Fatalf("Failed to read admin password: %v", err)
		}
		if len(adminPassword) < 8 {
			fmt.Println("Password must have at least 8 characters. Please try again.")
			continue
		}
		confirm, err := readPassword("Confirm Admin User Password: ")
		if err != nil {
			log.Fatalf("Failed to read admin password confirmation: %v", err)
		}
		if adminPassword == confirm {
			break
		}
		fmt.Println("Passwords do not match. Please try again.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	adminUser := models.User{
		OrganizationID: organization.ID,
		Name:           adminName,
		Email:          adminEmail,
		PasswordHash:   string(hashedPassword),
		Role:           models.RoleAdmin,
		IsActive:       true,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		log.Fatalf("Failed to create admin user: %v. Ensure email is unique.", err)
	}
	fmt.Printf("Admin user '%s' created successfully.\n", adminUser.Email)

	// 5. Escalation rules
	fmt.Println("\n--- Seeding Escalation Rules ---")
	if err := seeders.SeedOrganization(db, organization.ID); err != nil {
		log.Fatalf("Failed to seed escalation rules: %v", err)
	}

	fmt.Println("\n--- FSMS Setup Complete! ---")
	fmt.Println("You can now start the API server (cmd/server).")
}
