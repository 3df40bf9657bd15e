package database

import (
	"errors"
	"fmt"
	"time"

	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedTask struct {
	title       string
	description string
	priority    models.TaskPriority
	status      models.TaskStatus
	dueInDays   *int
}

func days(n int) *int { return &n }

// DefaultRoles are the organizational roles every deployment starts with.
var DefaultRoles = []string{
	"HR",
	"Admin",
	"Process Engineer",
	"Equipment Engineer",
	"Operations/Technician",
	"Logistics/Driver",
}

var seedTasks = map[string][]seedTask{
	"HR": {
		{"Review new hire onboarding documents", "Check I-9 and onboarding packets for next week's hires", models.PriorityHigh, models.TaskStatusTodo, days(2)},
		{"Schedule quarterly safety training", "Book the training room and send invites", models.PriorityMedium, models.TaskStatusInProgress, days(14)},
		{"Update employee handbook", "Incorporate the new remote work policy", models.PriorityLow, models.TaskStatusTodo, days(30)},
		{"Process payroll for month end", "Payroll must be submitted before the bank cutoff", models.PriorityCritical, models.TaskStatusInProgress, days(-1)},
		{"Update benefits enrollment system", "Waiting on vendor credentials", models.PriorityMedium, models.TaskStatusBlocked, nil},
	},
	"Admin": {
		{"Approve purchase orders for Q2 supplies", "", models.PriorityHigh, models.TaskStatusTodo, days(3)},
		{"Update facility access cards", "Deactivate cards of departed staff", models.PriorityMedium, models.TaskStatusTodo, days(7)},
		{"Renew software licenses", "CAD and MES licenses expire this month", models.PriorityCritical, models.TaskStatusTodo, days(5)},
		{"Organize quarterly all-hands meeting", "", models.PriorityLow, models.TaskStatusDone, days(-10)},
	},
	"Process Engineer": {
		{"Troubleshoot yield drop in Line 3", "Yield fell 4% since last Tuesday", models.PriorityCritical, models.TaskStatusInProgress, days(0)},
		{"Analyze wafer defect data", "Pull the last two weeks of inspection data", models.PriorityHigh, models.TaskStatusTodo, days(2)},
		{"Review new material specifications", "Supplier has not sent the datasheet yet", models.PriorityMedium, models.TaskStatusBlocked, days(10)},
		{"Update process documentation", "", models.PriorityLow, models.TaskStatusTodo, nil},
	},
	"Equipment Engineer": {
		{"Repair wafer handler in Bay 2", "Robot arm faults on pick", models.PriorityCritical, models.TaskStatusInProgress, days(-2)},
		{"Perform preventive maintenance on etcher", "", models.PriorityHigh, models.TaskStatusTodo, days(1)},
		{"Install new vacuum pump", "Pump delivery delayed by supplier", models.PriorityMedium, models.TaskStatusBlocked, days(12)},
		{"Calibrate temperature sensors", "", models.PriorityMedium, models.TaskStatusTodo, days(6)},
	},
	"Operations/Technician": {
		{"Load wafers into processing line", "", models.PriorityHigh, models.TaskStatusTodo, days(0)},
		{"Inspect wafers for defects", "Use the visual inspection checklist", models.PriorityHigh, models.TaskStatusTodo, days(1)},
		{"Restock consumables", "", models.PriorityLow, models.TaskStatusTodo, days(4)},
		{"Attend safety briefing", "", models.PriorityMedium, models.TaskStatusDone, days(-3)},
	},
	"Logistics/Driver": {
		{"Deliver wafers to customer facility", "Temperature-controlled transport required", models.PriorityCritical, models.TaskStatusTodo, days(1)},
		{"Pick up raw materials from supplier", "", models.PriorityHigh, models.TaskStatusTodo, days(2)},
		{"Schedule vehicle maintenance", "", models.PriorityLow, models.TaskStatusTodo, days(20)},
		{"Verify shipment documentation", "Customs paperwork missing a signature", models.PriorityMedium, models.TaskStatusBlocked, nil},
	},
}

// SeedInput carries the optional initial admin account.
type SeedInput struct {
	AdminUsername string
	AdminPassword string
}

// Seed inserts reference roles, sample tasks (only into an empty task table)
// and the initial admin. Running it twice changes nothing.
func Seed(db *gorm.DB, input SeedInput) error {
	return db.Transaction(func(tx *gorm.DB) error {
		roles := make([]models.Role, len(DefaultRoles))
		for i, name := range DefaultRoles {
			roles[i] = models.Role{Name: name}
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&roles).Error; err != nil {
			return fmt.Errorf("failed to seed roles: %w", err)
		}

		var taskCount int64
		if err := tx.Model(&models.Task{}).Count(&taskCount).Error; err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		if taskCount == 0 {
			if err := seedRoleTasks(tx); err != nil {
				return err
			}
		}

		if input.AdminUsername != "" && input.AdminPassword != "" {
			if err := seedAdmin(tx, input); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedRoleTasks(tx *gorm.DB) error {
	var roles []models.Role
	if err := tx.Find(&roles).Error; err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	today := time.Now()
	for _, role := range roles {
		for _, st := range seedTasks[role.Name] {
			task := models.Task{
				RoleID:   role.ID,
				Title:    st.title,
				Priority: st.priority,
				Status:   st.status,
			}
			if st.description != "" {
				desc := st.description
				task.Description = &desc
			}
			if st.dueInDays != nil {
				due := today.AddDate(0, 0, *st.dueInDays)
				task.DueDate = &due
			}
			if err := tx.Create(&task).Error; err != nil {
				return fmt.Errorf("failed to seed task %q: %w", st.title, err)
			}
		}
	}

	applog.Log.Info("Seeded sample tasks", zap.Int("roles", len(roles)))
	return nil
}

func seedAdmin(tx *gorm.DB, input SeedInput) error {
	username := models.NormalizeUsername(input.AdminUsername)

	var existing models.User
	err := tx.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.UserRoleAdmin,
		IsActive:     true,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	applog.Log.Info("Created initial admin", zap.String("username", username))
	return nil
}
