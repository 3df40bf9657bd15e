package repository

import (
	"strings"
	"time"

	"github.com/astrasemi/assistant/internal/utils"
	"gorm.io/gorm"
)

// paginate limits a query to one page; a zero limit leaves it unbounded
func paginate(page utils.PaginationParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Limit <= 0 {
			return db
		}
		return db.Offset(page.Offset).Limit(page.Limit)
	}
}

// likeEscaper makes % and _ literal inside a LIKE pattern. '!' is used as the
// escape character because backslash needs quoting differently in MySQL.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsFold matches term as a literal, case-insensitive substring of any
// of the columns
func containsFold(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		needle := strings.ToLower(strings.TrimSpace(term))
		if needle == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + likeEscaper.Replace(needle) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			clauses[i] = "LOWER(" + col + ") LIKE ? ESCAPE '!'"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// createdBetween bounds column by the optional inclusive range
func createdBetween(column string, start, end *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where(column+" >= ?", *start)
		}
		if end != nil {
			db = db.Where(column+" <= ?", *end)
		}
		return db
	}
}

// visibleAnswers keeps answers of a post that were not soft-deleted
func visibleAnswers(postID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("post_id = ? AND is_deleted = ?", postID, false)
	}
}
