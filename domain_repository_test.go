package crudboot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetRepository = DomainRepository[widget, *widgetDomain, *widgetItem, int64, int64]

func newWidgetDomainRepository(t *testing.T, rows int) *widgetRepository {
	t.Helper()
	db := openTestDB(t)
	seedWidgets(t, db, rows)
	return NewDomainRepository(
		NewSQLRepository[widget, int64, int64](db, widgetShaper()),
		Mapper[widget, *widgetDomain, *widgetItem](widgetMapper),
	)
}

func itemNames(items []*widgetItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func TestDomainRepository_Reads(t *testing.T) {
	ctx := context.Background()
	repo := newWidgetDomainRepository(t, 8)

	t.Run("get domain object", func(t *testing.T) {
		domain, err := repo.GetDomainObject(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, &widgetDomain{ID: 5, OwnerID: 1, Name: "W05", Rank: 4}, domain)
	})

	t.Run("missing record is a mapping error", func(t *testing.T) {
		domain, err := repo.GetDomainObject(ctx, 50)
		assert.Nil(t, domain)
		assert.ErrorIs(t, err, ErrMapping)
		assert.True(t, IsNotFound(err))
	})

	t.Run("async get", func(t *testing.T) {
		domain, err := Await(repo.GetDomainObjectAsync(ctx, 1))
		require.NoError(t, err)
		assert.Equal(t, "W01", domain.Name)
	})

	t.Run("paginate map", func(t *testing.T) {
		owner := int64(1)
		page, err := repo.PaginateMap(ctx, ListQuery[int64]{ForeignKey: &owner, Page: 2, Size: 3, Sort: "name.desc"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Equal(t, []string{"W01"}, itemNames(page.Items))

		page, err = Await(repo.PaginateMapAsync(ctx, ListQuery[int64]{Page: 1, Size: 2}))
		require.NoError(t, err)
		assert.Equal(t, int64(8), page.Total)
		assert.Equal(t, []*widgetItem{{ID: 1, Name: "W01"}, {ID: 2, Name: "W02"}}, page.Items)
	})

	t.Run("list map", func(t *testing.T) {
		items, err := repo.ListMap(ctx, ListQuery[int64]{Sort: "rank", Size: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"W08", "W07"}, itemNames(items))

		items, err = Await(repo.ListMapAsync(ctx, ListQuery[int64]{Search: "nothing"}))
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("list errors pass through", func(t *testing.T) {
		_, err := repo.PaginateMap(ctx, ListQuery[int64]{Sort: "unknown"})
		assert.ErrorIs(t, err, ErrUnknownSortField)
		_, err = repo.ListMap(ctx, ListQuery[int64]{Sort: "unknown"})
		assert.ErrorIs(t, err, ErrUnknownSortField)
	})
}

func TestDomainRepository_Writes(t *testing.T) {
	ctx := context.Background()
	repo := newWidgetDomainRepository(t, 2)

	id, err := repo.InsertDomainObject(ctx, &widgetDomain{OwnerID: 2, Name: "fresh", Rank: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	updated, err := repo.UpdateDomainObject(ctx, &widgetDomain{ID: id, OwnerID: 2, Name: "renamed", Rank: 6})
	require.NoError(t, err)
	assert.True(t, updated)

	ok, err := repo.InsertOrUpdateDomainObject(ctx, &widgetDomain{ID: 1, OwnerID: 1, Name: "W01", Rank: 42})
	require.NoError(t, err)
	assert.True(t, ok)

	domain, err := repo.GetDomainObject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", domain.Name)
	domain, err = repo.GetDomainObject(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 42, domain.Rank)

	_, err = repo.InsertDomainObject(ctx, nil)
	assert.ErrorIs(t, err, ErrMapping)
	_, err = repo.UpdateDomainObject(ctx, nil)
	assert.ErrorIs(t, err, ErrMapping)
	_, err = repo.InsertOrUpdateDomainObject(ctx, nil)
	assert.ErrorIs(t, err, ErrMapping)

	assert.NotNil(t, repo.Mapper())
}
