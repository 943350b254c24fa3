package crudboot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type widget struct {
	ID      int64  `gorm:"primaryKey" json:"id"`
	OwnerID int64  `gorm:"index" json:"owner_id"`
	Name    string `gorm:"uniqueIndex" json:"name"`
	Rank    int    `json:"rank"`
}

func (widget) TableName() string {
	return "widgets"
}

type widgetDomain struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Name    string `json:"name"`
	Rank    int    `json:"rank"`
}

func (w *widgetDomain) IsEmpty() bool {
	return IsEmptyValue(w)
}

func (w *widgetDomain) SetID(id int64) {
	w.ID = id
}

type widgetItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (w *widgetItem) IsEmpty() bool {
	return IsEmptyValue(w)
}

var widgetMapper = MapperFuncs[widget, *widgetDomain, *widgetItem]{
	ToDomain: func(w *widget) *widgetDomain {
		return &widgetDomain{ID: w.ID, OwnerID: w.OwnerID, Name: w.Name, Rank: w.Rank}
	},
	ToListItem: func(w *widget) *widgetItem {
		return &widgetItem{ID: w.ID, Name: w.Name}
	},
	ToRecord: func(d *widgetDomain) *widget {
		return &widget{ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, Rank: d.Rank}
	},
}

func widgetShaper() *QueryShaper[widget, int64] {
	return &QueryShaper[widget, int64]{
		ForeignKey: func(ownerID int64) Scope {
			return func(db *gorm.DB) *gorm.DB {
				return db.Where("owner_id = ?", ownerID)
			}
		},
		Search: func(phrase string) Scope {
			return func(db *gorm.DB) *gorm.DB {
				return db.Where("name LIKE ?", "%"+phrase+"%")
			}
		},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewSQLConfig().
		WithProvider(ProviderSQLite).
		WithDatabase(":memory:").
		Open(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))

	t.Cleanup(func() {
		if conn, err := db.DB(); err == nil {
			conn.Close()
		}
	})
	return db
}

// seedWidgets inserts W01..Wn. Odd widgets belong to owner 1, even ones to
// owner 2, and rank runs from n down to 1.
func seedWidgets(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		w := widget{
			ID:      int64(i),
			OwnerID: int64(1 + (i-1)%2),
			Name:    fmt.Sprintf("W%02d", i),
			Rank:    n - i + 1,
		}
		require.NoError(t, db.Create(&w).Error)
	}
}

func widgetNames(widgets []widget) []string {
	names := make([]string, len(widgets))
	for i, w := range widgets {
		names[i] = w.Name
	}
	return names
}
