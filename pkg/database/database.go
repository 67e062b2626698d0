package database

import (
	"fmt"
	"log"

	"edulearn_backend/internal/config"
	"edulearn_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// Migrations run automatically outside release mode; production
	// deployments opt in with -migrate / -migrate-only.
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Chapter{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.LiveSession{},
		&model.StudyGroup{},
		&model.QuestionPack{},
		&model.Test{},
		&model.Question{},
		&model.QuestionOption{},
		&model.TestSubmission{},
		&model.SubmissionAnswer{},
		&model.SubscriptionPlan{},
		&model.SubscriptionPlanLimit{},
		&model.UserSubscription{},
		&model.UsageTracking{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedDefaultPlans(db)

	return db, nil
}

// seedDefaultPlans inserts the default plan ladder on an empty database.
// A resource missing from a plan's limit rows means no quota at all, so
// every plan spells out all four.
func seedDefaultPlans(db *gorm.DB) {
	var count int64
	db.Model(&model.SubscriptionPlan{}).Count(&count)
	if count > 0 {
		return
	}

	plans := []struct {
		name     string
		price    float64
		priority int
		limits   map[model.ResourceType]int
	}{
		{
			name: "free", price: 0, priority: 0,
			limits: map[model.ResourceType]int{
				model.ResourceCourses:  1,
				model.ResourceSessions: 2,
				model.ResourceGroups:   1,
				model.ResourcePacks:    1,
			},
		},
		{
			name: "basic", price: 9.99, priority: 10,
			limits: map[model.ResourceType]int{
				model.ResourceCourses:  5,
				model.ResourceSessions: 20,
				model.ResourceGroups:   5,
				model.ResourcePacks:    10,
			},
		},
		{
			name: "pro", price: 29.99, priority: 20,
			limits: map[model.ResourceType]int{
				model.ResourceCourses:  model.UnlimitedUsage,
				model.ResourceSessions: model.UnlimitedUsage,
				model.ResourceGroups:   model.UnlimitedUsage,
				model.ResourcePacks:    model.UnlimitedUsage,
			},
		},
	}

	for _, p := range plans {
		plan := &model.SubscriptionPlan{
			Name:     p.name,
			Price:    p.price,
			Priority: p.priority,
			IsActive: true,
		}
		for rt, v := range p.limits {
			plan.Limits = append(plan.Limits, model.SubscriptionPlanLimit{
				ResourceType: rt,
				LimitValue:   v,
			})
		}
		db.Create(plan)
	}

	log.Println("Default subscription plans seeded")
}
