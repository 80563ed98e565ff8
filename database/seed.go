package database

import (
	"fmt"
	"log"
	"os"

	"github.com/sahilchouksey/study-scheduler/model"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedCombos(); err != nil {
		return fmt.Errorf("failed to seed combos: %w", err)
	}

	if err := s.SeedCourses(); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	if err := s.SeedLessons(); err != nil {
		return fmt.Errorf("failed to seed lessons: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user from ADMIN_EMAIL.
// Skipped when the variable is not set.
func (s *Seeder) SeedAdminUser() error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		log.Println("ℹ️  ADMIN_EMAIL not set, skipping admin user seed")
		return nil
	}

	var count int64
	if err := s.db.Model(&model.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("ℹ️  Admin user already exists, skipping")
		return nil
	}

	admin := model.User{
		Email: adminEmail,
		Name:  "Administrator",
		Role:  "admin",
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s", adminEmail)
	return nil
}

// SeedCombos creates the default course combos
func (s *Seeder) SeedCombos() error {
	combos := []model.Combo{
		{Name: "English Foundations", Description: "Grammar, vocabulary and reading for beginners"},
		{Name: "Exam Preparation", Description: "Intensive listening and writing practice for standardized exams"},
	}

	for _, combo := range combos {
		var count int64
		if err := s.db.Model(&model.Combo{}).Where("name = ?", combo.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := s.db.Create(&combo).Error; err != nil {
			return err
		}
		log.Printf("✅ Created combo: %s", combo.Name)
	}

	return nil
}

// SeedCourses creates the default courses, attached to combos by name
func (s *Seeder) SeedCourses() error {
	type courseSeed struct {
		comboName   string
		name        string
		code        string
		skillFocus  string
		description string
	}

	seeds := []courseSeed{
		{"English Foundations", "Essential Grammar", "GRAM-101", "grammar", "Core sentence structures and tenses"},
		{"English Foundations", "Everyday Vocabulary", "VOCAB-101", "vocabulary", "High-frequency words in context"},
		{"English Foundations", "Guided Reading", "READ-101", "reading", "Short texts with comprehension drills"},
		{"Exam Preparation", "Academic Listening", "LIST-201", "listening", "Lecture and conversation listening practice"},
		{"Exam Preparation", "Essay Writing", "WRIT-201", "writing", "Structured academic essay writing"},
	}

	for _, seed := range seeds {
		var count int64
		if err := s.db.Model(&model.Course{}).Where("code = ?", seed.code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		var combo model.Combo
		var comboID *uint
		if err := s.db.Where("name = ?", seed.comboName).First(&combo).Error; err == nil {
			comboID = &combo.ID
		}

		course := model.Course{
			ComboID:     comboID,
			Name:        seed.name,
			Code:        seed.code,
			SkillFocus:  seed.skillFocus,
			Description: seed.description,
		}
		if err := s.db.Create(&course).Error; err != nil {
			return err
		}
		log.Printf("✅ Created course: %s (%s)", seed.name, seed.code)
	}

	return nil
}

// SeedLessons creates a handful of lessons per seeded course
func (s *Seeder) SeedLessons() error {
	lessonNames := []string{"Introduction", "Core Concepts", "Practice", "Review"}

	var courses []model.Course
	if err := s.db.Find(&courses).Error; err != nil {
		return err
	}

	for _, course := range courses {
		var count int64
		if err := s.db.Model(&model.Lesson{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		for i, name := range lessonNames {
			lesson := model.Lesson{
				CourseID: course.ID,
				Name:     name,
				Position: i + 1,
			}
			if err := s.db.Create(&lesson).Error; err != nil {
				return err
			}
		}
		log.Printf("✅ Created %d lessons for course: %s", len(lessonNames), course.Code)
	}

	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
