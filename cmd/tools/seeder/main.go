package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(db)
	seedCatalog(db)
	seedCoupons(db)

	log.Println("Seeding completed successfully!")
}

func seedUsers(db *sql.DB) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Admin User", "admin@storefront.local", "admin"},
		{"Staff Member", "staff@storefront.local", "staff"},
		{"Linh Nguyen", "linh@example.com", "customer"},
		{"Minh Tran", "minh@example.com", "customer"},
		{"Hoa Pham", "hoa@example.com", "customer"},
		{"Duc Le", "duc@example.com", "customer"},
		{"An Vo", "an@example.com", "customer"},
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (name, email, password_hash, role, is_active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (email) DO NOTHING;
		`, u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedCatalog(db *sql.DB) {
	categories := []struct {
		Name string
		Slug string
	}{
		{"Electronics", "electronics"},
		{"Fashion", "fashion"},
		{"Home & Living", "home-living"},
		{"Beauty", "beauty"},
		{"Sports", "sports"},
		{"Books", "books"},
	}

	fmt.Println("Seeding Categories...")
	catIDs := make(map[string]string)
	for _, c := range categories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name;
		`, c.Name, c.Slug)
		if err != nil {
			log.Printf("Failed to upsert category %s: %v", c.Name, err)
		}

		var id string
		if err := db.QueryRow("SELECT id FROM categories WHERE slug = $1", c.Slug).Scan(&id); err != nil {
			log.Printf("Failed to get ID for category %s: %v", c.Name, err)
			continue
		}
		catIDs[c.Slug] = id
	}

	products := []struct {
		Category    string
		Title       string
		Slug        string
		Description string
		Price       int64
	}{
		{"electronics", "Wireless Earbuds Pro", "wireless-earbuds-pro", "Noise-cancelling earbuds with 24h battery", 1_890_000},
		{"electronics", "Smart Watch S3", "smart-watch-s3", "Fitness tracking and notifications", 2_450_000},
		{"electronics", "Bluetooth Speaker Mini", "bluetooth-speaker-mini", "Portable speaker with deep bass", 690_000},
		{"fashion", "Classic Denim Jacket", "classic-denim-jacket", "Unisex medium-wash denim", 850_000},
		{"fashion", "Canvas Sneakers", "canvas-sneakers", "Everyday low-top sneakers", 520_000},
		{"fashion", "Linen Shirt", "linen-shirt", "Breathable summer shirt", 430_000},
		{"home-living", "Ceramic Dinner Set", "ceramic-dinner-set", "12-piece glazed stoneware", 1_150_000},
		{"home-living", "Scented Candle Trio", "scented-candle-trio", "Lavender, cedar, and citrus", 360_000},
		{"beauty", "Vitamin C Serum", "vitamin-c-serum", "Brightening facial serum 30ml", 480_000},
		{"sports", "Yoga Mat 6mm", "yoga-mat-6mm", "Non-slip TPE mat with strap", 390_000},
		{"sports", "Running Cap", "running-cap", "Lightweight quick-dry cap", 180_000},
		{"books", "The Pragmatic Chef", "the-pragmatic-chef", "Weeknight cooking under 30 minutes", 250_000},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		catID, ok := catIDs[p.Category]
		if !ok {
			continue
		}
		_, err := db.Exec(`
			INSERT INTO products (category_id, title, slug, description, price, is_available)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (slug) DO UPDATE SET price = EXCLUDED.price, description = EXCLUDED.description;
		`, catID, p.Title, p.Slug, p.Description, p.Price)
		if err != nil {
			log.Printf("Failed to upsert product %s: %v", p.Slug, err)
			continue
		}

		var productID string
		if err := db.QueryRow("SELECT id FROM products WHERE slug = $1", p.Slug).Scan(&productID); err != nil {
			log.Printf("Failed to get ID for product %s: %v", p.Slug, err)
			continue
		}
		seedVariants(db, productID)
	}
}

func seedVariants(db *sql.DB, productID string) {
	variants := []struct {
		Color string
		Size  string
		Stock int
	}{
		{"black", "M", 40},
		{"black", "L", 25},
		{"white", "M", 30},
	}
	for _, v := range variants {
		_, err := db.Exec(`
			INSERT INTO product_variants (product_id, color, size, stock)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id, color, size) DO UPDATE SET stock = EXCLUDED.stock;
		`, productID, v.Color, v.Size, v.Stock)
		if err != nil {
			log.Printf("Failed to upsert variant for product %s: %v", productID, err)
		}
	}
}

func seedCoupons(db *sql.DB) {
	coupons := []struct {
		Code        string
		Description string
		Percent     int
		MaxDiscount int64
		MinPurchase int64
		MaxUsage    int
		PerCustomer int
		AppliesTo   string
		Categories  string
		From        string
		To          string
	}{
		{"WELCOME10", "10% off your first order", 10, 200_000, 0, 0, 1, "ALL", "{}", "now() - interval '7 days'", "now() + interval '90 days'"},
		{"SUMMER25", "25% off fashion picks", 25, 500_000, 1_000_000, 500, 2, "CATEGORY", "fashion", "now() - interval '1 day'", "now() + interval '30 days'"},
		{"BOOKWORM", "15% off books", 15, 0, 200_000, 100, 3, "CATEGORY", "books", "now()", "now() + interval '60 days'"},
		{"FLASH50", "Expired flash sale", 50, 300_000, 0, 50, 1, "ALL", "{}", "now() - interval '30 days'", "now() - interval '23 days'"},
	}

	fmt.Println("Seeding Coupons...")
	for _, c := range coupons {
		categoryIDs := "'{}'::uuid[]"
		if c.AppliesTo == "CATEGORY" {
			categoryIDs = fmt.Sprintf("(SELECT COALESCE(array_agg(id), '{}') FROM categories WHERE slug = '%s')", c.Categories)
		}
		query := fmt.Sprintf(`
			INSERT INTO coupons (code, description, discount_percent, max_discount_amount,
				min_purchase_amount, max_usage_count, max_usage_per_customer,
				applies_to, category_ids, valid_from, valid_to, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, %s, %s, %s, true)
			ON CONFLICT (code) DO UPDATE SET
				discount_percent = EXCLUDED.discount_percent,
				valid_from = EXCLUDED.valid_from,
				valid_to = EXCLUDED.valid_to;
		`, categoryIDs, c.From, c.To)
		_, err := db.Exec(query, c.Code, c.Description, c.Percent, c.MaxDiscount, c.MinPurchase, c.MaxUsage, c.PerCustomer, c.AppliesTo)
		if err != nil {
			log.Printf("Failed to upsert coupon %s: %v", c.Code, err)
		}
	}
}
