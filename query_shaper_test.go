package crudboot

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func paginate(t *testing.T, db *gorm.DB, shaper *QueryShaper[widget, int64], q ListQuery[int64]) ([]widget, int64, error) {
	t.Helper()
	query, total, err := shaper.Paginate(db, q)
	if err != nil {
		return nil, 0, err
	}
	var rows []widget
	require.NoError(t, query.Find(&rows).Error)
	return rows, total, nil
}

func list(t *testing.T, db *gorm.DB, shaper *QueryShaper[widget, int64], q ListQuery[int64]) ([]widget, error) {
	t.Helper()
	query, err := shaper.List(db, q)
	if err != nil {
		return nil, err
	}
	var rows []widget
	require.NoError(t, query.Find(&rows).Error)
	return rows, nil
}

func TestQueryShaper_Paginate(t *testing.T) {
	db := openTestDB(t)
	seedWidgets(t, db, 25)
	shaper := widgetShaper()

	tests := []struct {
		name      string
		page      int
		size      int
		wantCount int
		wantFirst string
	}{
		{name: "first page", page: 1, size: 10, wantCount: 10, wantFirst: "W01"},
		{name: "middle page", page: 2, size: 10, wantCount: 10, wantFirst: "W11"},
		{name: "partial last page", page: 3, size: 10, wantCount: 5, wantFirst: "W21"},
		{name: "past the end", page: 4, size: 10, wantCount: 0},
		{name: "page zero reads the first page", page: 0, size: 10, wantCount: 10, wantFirst: "W01"},
		{name: "offset beyond the integer range", page: math.MaxInt/4 + 2, size: 4, wantCount: 0},
		{name: "offset wrapping to zero", page: 1<<62 + 1, size: 4, wantCount: 0},
		{name: "no size returns everything", page: 2, size: 0, wantCount: 25, wantFirst: "W01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := paginate(t, db, shaper, ListQuery[int64]{Page: tt.page, Size: tt.size})
			require.NoError(t, err)
			assert.Equal(t, int64(25), total)
			assert.Len(t, rows, tt.wantCount)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, rows[0].Name)
			}
		})
	}
}

func TestQueryShaper_PagesCoverEveryRowOnce(t *testing.T) {
	db := openTestDB(t)
	seedWidgets(t, db, 23)
	shaper := widgetShaper()

	seen := map[string]int{}
	for page := 1; page <= 5; page++ {
		rows, total, err := paginate(t, db, shaper, ListQuery[int64]{Page: page, Size: 5, Sort: "rank"})
		require.NoError(t, err)
		assert.Equal(t, int64(23), total)
		for _, row := range rows {
			seen[row.Name]++
		}
	}
	assert.Len(t, seen, 23)
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestQueryShaper_Sort(t *testing.T) {
	db := openTestDB(t)
	seedWidgets(t, db, 6)
	shaper := widgetShaper()

	t.Run("default order is the primary key", func(t *testing.T) {
		rows, err := list(t, db, shaper, ListQuery[int64]{})
		require.NoError(t, err)
		assert.Equal(t, []string{"W01", "W02", "W03", "W04", "W05", "W06"}, widgetNames(rows))
	})

	t.Run("desc reverses asc", func(t *testing.T) {
		asc, err := list(t, db, shaper, ListQuery[int64]{Sort: "rank"})
		require.NoError(t, err)
		desc, err := list(t, db, shaper, ListQuery[int64]{Sort: "rank.desc"})
		require.NoError(t, err)

		assert.Equal(t, []string{"W06", "W05", "W04", "W03", "W02", "W01"}, widgetNames(asc))
		reversed := widgetNames(desc)
		for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
			reversed[i], reversed[j] = reversed[j], reversed[i]
		}
		assert.Equal(t, widgetNames(asc), reversed)
	})

	t.Run("ties are broken by the primary key", func(t *testing.T) {
		asc, err := list(t, db, shaper, ListQuery[int64]{Sort: "OwnerID"})
		require.NoError(t, err)
		assert.Equal(t, []string{"W01", "W03", "W05", "W02", "W04", "W06"}, widgetNames(asc))

		desc, err := list(t, db, shaper, ListQuery[int64]{Sort: "owner_id.desc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"W06", "W04", "W02", "W05", "W03", "W01"}, widgetNames(desc))
	})

	t.Run("several fields", func(t *testing.T) {
		rows, err := list(t, db, shaper, ListQuery[int64]{Sort: "owner_id.desc,rank"})
		require.NoError(t, err)
		assert.Equal(t, []string{"W06", "W04", "W02", "W05", "W03", "W01"}, widgetNames(rows))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := list(t, db, shaper, ListQuery[int64]{Sort: "colour"})
		assert.ErrorIs(t, err, ErrUnknownSortField)
	})

	t.Run("custom column resolver", func(t *testing.T) {
		custom := widgetShaper()
		custom.SortColumn = func(field string) (string, error) {
			if field == "position" {
				return "widgets.rank", nil
			}
			return "", fmt.Errorf("%w %q", ErrUnknownSortField, field)
		}
		rows, err := list(t, db, custom, ListQuery[int64]{Sort: "position.desc", Size: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"W01", "W02"}, widgetNames(rows))

		_, err = list(t, db, custom, ListQuery[int64]{Sort: "rank"})
		assert.ErrorIs(t, err, ErrUnknownSortField)
	})
}

func TestQueryShaper_Filters(t *testing.T) {
	db := openTestDB(t)
	seedWidgets(t, db, 25)

	t.Run("no foreign key leaves the list unfiltered", func(t *testing.T) {
		_, total, err := paginate(t, db, widgetShaper(), ListQuery[int64]{Page: 1, Size: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
	})

	t.Run("foreign key", func(t *testing.T) {
		owner := int64(2)
		rows, total, err := paginate(t, db, widgetShaper(), ListQuery[int64]{ForeignKey: &owner, Page: 1, Size: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.Equal(t, []string{"W02", "W04", "W06", "W08", "W10"}, widgetNames(rows))
	})

	t.Run("foreign key without a filter hook", func(t *testing.T) {
		owner := int64(1)
		_, _, err := paginate(t, db, &QueryShaper[widget, int64]{}, ListQuery[int64]{ForeignKey: &owner})
		assert.ErrorIs(t, err, ErrForeignKeyFilterMissing)

		_, err = list(t, db, nil, ListQuery[int64]{ForeignKey: &owner})
		assert.ErrorIs(t, err, ErrForeignKeyFilterMissing)
	})

	t.Run("search", func(t *testing.T) {
		rows, total, err := paginate(t, db, widgetShaper(), ListQuery[int64]{Search: "W1", Page: 2, Size: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(10), total)
		assert.Equal(t, []string{"W14", "W15", "W16", "W17"}, widgetNames(rows))
	})

	t.Run("blank search is ignored", func(t *testing.T) {
		_, total, err := paginate(t, db, widgetShaper(), ListQuery[int64]{Search: "   "})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
	})

	t.Run("search without a hook is ignored", func(t *testing.T) {
		_, total, err := paginate(t, db, &QueryShaper[widget, int64]{}, ListQuery[int64]{Search: "W1"})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
	})

	t.Run("filters combine", func(t *testing.T) {
		owner := int64(1)
		rows, total, err := paginate(t, db, widgetShaper(), ListQuery[int64]{
			ForeignKey: &owner,
			Search:     "W1",
			Filter: func(db *gorm.DB) *gorm.DB {
				return db.Where("rank < ?", 14)
			},
			Sort: "name.desc",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, []string{"W19", "W17", "W15", "W13"}, widgetNames(rows))
	})

	t.Run("root query", func(t *testing.T) {
		shaper := widgetShaper()
		shaper.Root = func(db *gorm.DB) *gorm.DB {
			return db.Where("rank > ?", 20)
		}
		rows, total, err := paginate(t, db, shaper, ListQuery[int64]{Page: 1, Size: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Equal(t, []string{"W01", "W02", "W03"}, widgetNames(rows))
	})
}
