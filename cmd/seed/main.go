package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"photogallery/internal/database"
	"photogallery/internal/domain/gallery"
	"photogallery/internal/pkg/jwt"
)

// seed creates a demo owner with one gallery of every section type and
// prints a bearer token for the owner endpoints.
func main() {
	_ = godotenv.Load()

	dsn := flag.String("db", envOr("DATABASE_URL", "gallery.db"), "database DSN")
	password := flag.String("download-password", "", "optional gallery download password")
	flag.Parse()

	db, err := database.Connect(*dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	owner := gallery.User{Email: "photographer@example.com", Name: "Demo Photographer"}
	if err := db.Where("email = ?", owner.Email).FirstOrCreate(&owner).Error; err != nil {
		log.Fatal("create owner failed:", err)
	}

	deadline := time.Now().UTC().AddDate(0, 3, 0)
	g := gallery.Gallery{OwnerID: owner.ID, Title: "Demo Wedding", AutoDeleteDate: &deadline}
	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}
		g.DownloadPasswordHash = string(hash)
	}
	if err := db.Create(&g).Error; err != nil {
		log.Fatal("create gallery failed:", err)
	}

	sections := []gallery.Section{
		{Name: "Portraits", Type: gallery.SectionPhoto},
		{Name: "Highlights", Type: gallery.SectionVideo},
		{Name: "Photo booth", Type: gallery.SectionScrapedEvent, Locator: "https://booth.example.com/event/demo"},
		{Name: "Drive", Type: gallery.SectionCloudDrive, Locator: "1DemoFolderIdentifier"},
		{Name: "Guests", Type: gallery.SectionSharedFolder, Locator: "https://disk.yandex.ru/d/DemoShare"},
	}
	for i := range sections {
		sections[i].GalleryID = g.ID
		sections[i].Position = i
		if err := db.Create(&sections[i]).Error; err != nil {
			log.Fatal("create section failed:", err)
		}
	}

	secret := envOr("JWT_SECRET", "change-me-jwt-secret")
	token, err := jwt.New(secret, 24*time.Hour).GenerateToken(owner.ID)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Seeded gallery %d with %d sections for %s", g.ID, len(sections), owner.Email)
	log.Printf("Owner token (24h): %s", token)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
