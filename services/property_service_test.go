package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend_realty/models"
	"backend_realty/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var fixedNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestPropertyService(mt *mtest.T) *PropertyService {
	svc := NewPropertyService(testutils.StaticProvider{DB: mt.DB}, nil, testutils.NewTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestPropertyFilter_Apply(t *testing.T) {
	minPrice, maxPrice := 1000.0, 5000.0
	filter := PropertyFilter{
		TransactionType: models.TransactionRent,
		PropertyType:    models.PropertyTypeHouse,
		City:            "Astana",
		MinPrice:        &minPrice,
		MaxPrice:        &maxPrice,
		FeaturedOnly:    true,
	}

	got := filter.apply(bson.M{})

	assert.Equal(t, bson.M{
		"transaction_type": models.TransactionRent,
		"property_type":    models.PropertyTypeHouse,
		"location.city":    "Astana",
		"price.amount":     bson.M{"$gte": 1000.0, "$lte": 5000.0},
		"is_featured":      true,
	}, got)

	assert.Equal(t, bson.M{}, PropertyFilter{}.apply(bson.M{}))
}

func TestListOptions_Normalize(t *testing.T) {
	assert.False(t, ListOptions{}.Paginated())
	assert.True(t, ListOptions{Limit: 5}.Paginated())

	assert.Equal(t, ListOptions{Page: 1, Limit: DefaultPageLimit}, ListOptions{Page: -3}.normalize())
	assert.Equal(t, ListOptions{Page: 2, Limit: MaxPageLimit}, ListOptions{Page: 2, Limit: 1000}.normalize())
}

func TestBuildPropertyUpdate(t *testing.T) {
	patch := map[string]interface{}{
		"_id":         "other",
		"id":          "other",
		"created_at":  "2020-01-01",
		"created_by":  map[string]interface{}{"admin_id": "x"},
		"views_count": 1000,
		"title":       "Новое название",
		"is_featured": true,
		"price":       map[string]interface{}{"amount": 99000.0},
		"location":    map[string]interface{}{"coordinates": map[string]interface{}{"lat": 43.2, "lng": 76.9}},
		"features":    []interface{}{"parking"},
	}

	update, err := BuildPropertyUpdate(patch, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"$set": bson.M{
		"title":                "Новое название",
		"is_featured":          true,
		"price.amount":         99000.0,
		"location.coordinates": map[string]interface{}{"lat": 43.2, "lng": 76.9},
		"features":             []interface{}{"parking"},
		"updated_at":           fixedNow,
	}}, update)
}

func TestBuildPropertyUpdate_RejectsPaths(t *testing.T) {
	patches := []map[string]interface{}{
		{"created_by.admin_id": "other-agent"},
		{"_id.x": 1},
		{"$set": map[string]interface{}{"views_count": 0}},
		{"price": map[string]interface{}{"$inc": 1}},
		{"location": map[string]interface{}{"coordinates.lat": 1.0}},
	}

	for _, patch := range patches {
		update, err := BuildPropertyUpdate(patch, fixedNow)
		assert.Nil(t, update)
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr), "%v", patch)
	}
}

func TestBuildViewIncrement(t *testing.T) {
	update := BuildViewIncrement(fixedNow)

	assert.Equal(t, bson.M{"views_count": 1}, update["$inc"])
	assert.Equal(t, bson.M{"last_viewed_at": fixedNow}, update["$set"])
}

func TestPropertyService_ListPublic(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("returns only active properties in public shape", func(mt *mtest.T) {
		featured := testutils.CreateTestProperty("Пентхаус", nil)
		featured.IsFeatured = true
		featured.Images = []string{"https://ok.png", "javascript:bad", "/local.png", "ftp://x"}
		plain := testutils.CreateTestProperty("Студия", nil)

		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(t, featured), testutils.ToDoc(t, plain)))

		items, err := newTestPropertyService(mt).ListPublic(context.Background(), PropertyFilter{TransactionType: models.TransactionSale})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, featured.ID.Hex(), items[0].ID)
		assert.Equal(t, []string{"https://ok.png", "/local.png"}, items[0].Images)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "find", started.CommandName)

		isActive, err := started.Command.LookupErr("filter", "is_active", "$ne")
		require.NoError(t, err)
		assert.False(t, isActive.Boolean())

		tx, err := started.Command.LookupErr("filter", "transaction_type")
		require.NoError(t, err)
		assert.Equal(t, models.TransactionSale, tx.StringValue())

		sortKey, err := started.Command.LookupErr("sort")
		require.NoError(t, err)
		keys, err := sortKey.Document().Elements()
		require.NoError(t, err)
		require.Len(t, keys, 2)
		assert.Equal(t, "is_featured", keys[0].Key())
		assert.Equal(t, "created_at", keys[1].Key())
	})

	mt.Run("connectivity failure propagates", func(mt *mtest.T) {
		svc := NewPropertyService(testutils.StaticProvider{Err: errors.New("pool down")}, nil, testutils.NewTestLogger())

		_, err := svc.ListPublic(context.Background(), PropertyFilter{})
		assert.EqualError(t, err, "pool down")
	})
}

func TestPropertyService_List(t *testing.T) {
	mt := testutils.NewMockT(t)
	agent := &models.CreatedBy{AdminID: "agent-1", Role: models.RoleAgent}

	mt.Run("agent listing is scoped and paginated", func(mt *mtest.T) {
		mine := testutils.CreateTestProperty("Мой объект", agent)
		mt.AddMockResponses(
			testutils.CountResponse(21),
			testutils.CursorResponse(testutils.ToDoc(t, mine)),
		)

		page, err := newTestPropertyService(mt).List(context.Background(),
			Scope{Role: models.RoleAgent, AdminID: "agent-1"},
			ScopeOptions{},
			PropertyFilter{},
			ListOptions{Page: 3, Limit: 10})
		require.NoError(t, err)

		assert.Equal(t, int64(21), page.Total)
		assert.Equal(t, 3, page.Page)
		assert.Equal(t, 10, page.Limit)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "agent-1", page.Items[0].CreatedBy.AdminID)

		mt.GetStartedEvent() // aggregate для подсчета
		find := mt.GetStartedEvent()
		require.NotNil(t, find)
		assert.Equal(t, "find", find.CommandName)

		author, err := find.Command.LookupErr("filter", "created_by.admin_id")
		require.NoError(t, err)
		assert.Equal(t, "agent-1", author.StringValue())

		skip, err := find.Command.LookupErr("skip")
		require.NoError(t, err)
		assert.Equal(t, int64(20), skip.AsInt64())
	})

	mt.Run("showAll includes archived properties", func(mt *mtest.T) {
		archived := testutils.CreateTestProperty("Архив", nil)
		archived.IsActive = false
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(t, archived)))

		page, err := newTestPropertyService(mt).List(context.Background(),
			Scope{Role: models.RoleOwner, AdminID: "owner"},
			ScopeOptions{ShowArchived: true},
			PropertyFilter{},
			ListOptions{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.False(t, page.Items[0].IsActive)
		assert.Equal(t, 1, page.TotalPages)

		find := mt.GetStartedEvent()
		_, err = find.Command.LookupErr("filter", "is_active")
		assert.Error(t, err, "archived records must not be filtered out")
	})
}

func TestPropertyService_Get(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("active lookup", func(mt *mtest.T) {
		property := testutils.CreateTestProperty("Дом", nil)
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(t, property)))

		got, err := newTestPropertyService(mt).GetActive(context.Background(), property.ID)
		require.NoError(t, err)
		assert.Equal(t, property.ID, got.ID)
	})

	mt.Run("missing or inactive is not found", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.CursorResponse())

		_, err := newTestPropertyService(mt).GetActive(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("admin lookup with archived", func(mt *mtest.T) {
		property := testutils.CreateTestProperty("Архив", nil)
		property.IsActive = false
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(t, property)))

		got, err := newTestPropertyService(mt).Get(context.Background(), Scope{Role: models.RoleAdmin}, property.ID, true)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		find := mt.GetStartedEvent()
		_, err = find.Command.LookupErr("filter", "is_active")
		assert.Error(t, err)
	})
}

func TestPropertyService_Create(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("applies defaults and attribution", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		property := &models.Property{Title: "  Квартира  ", IsActive: false, ViewsCount: 99}
		author := &models.CreatedBy{AdminID: "agent-7", Name: "Асель", Role: models.RoleAgent}

		require.NoError(t, newTestPropertyService(mt).Create(context.Background(), property, author))

		assert.False(t, property.ID.IsZero())
		assert.Equal(t, "Квартира", property.Title)
		assert.True(t, property.IsActive)
		assert.Equal(t, int64(0), property.ViewsCount)
		assert.Equal(t, models.PropertyStatusPendingReview, property.Status)
		assert.Equal(t, []string{}, property.Images)
		assert.Equal(t, []string{}, property.Features)
		assert.Equal(t, fixedNow, property.CreatedAt)
		assert.Equal(t, fixedNow, property.UpdatedAt)
		assert.Equal(t, author, property.CreatedBy)

		insert := mt.GetStartedEvent()
		assert.Equal(t, "insert", insert.CommandName)
	})
}

func TestPropertyService_Mutations(t *testing.T) {
	mt := testutils.NewMockT(t)
	id := primitive.NewObjectID()

	mt.Run("update refreshes updated_at", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(1, 1))

		err := newTestPropertyService(mt).Update(context.Background(), Scope{}, id, map[string]interface{}{"title": "X"})
		require.NoError(t, err)

		update := mt.GetStartedEvent()
		assert.Equal(t, "update", update.CommandName)
	})

	mt.Run("update of unknown id is not found", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(0, 0))

		err := newTestPropertyService(mt).Update(context.Background(), Scope{}, id, map[string]interface{}{"title": "X"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("soft delete", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(1, 1))
		require.NoError(t, newTestPropertyService(mt).SoftDelete(context.Background(), Scope{}, id))
	})

	mt.Run("soft delete outside agent scope", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(0, 0))

		err := newTestPropertyService(mt).SoftDelete(context.Background(), Scope{Role: models.RoleAgent, AdminID: "a1"}, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("restore", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(1, 1))
		require.NoError(t, newTestPropertyService(mt).Restore(context.Background(), Scope{}, id))
	})

	mt.Run("view count on archived property is not found", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(0, 0))

		err := newTestPropertyService(mt).IncrementViewCount(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("view count", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(1, 1))
		require.NoError(t, newTestPropertyService(mt).IncrementViewCount(context.Background(), id))
	})
}

func TestPropertyService_BulkReassignOwner(t *testing.T) {
	mt := testutils.NewMockT(t)
	target := testutils.CreateTestAdmin(models.RoleAgent)
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	mt.Run("partial success is reported as counts", func(mt *mtest.T) {
		mt.AddMockResponses(testutils.UpdateResponse(2, 2))

		result, err := newTestPropertyService(mt).BulkReassignOwner(context.Background(), Scope{Role: models.RoleOwner}, ids, &target)
		require.NoError(t, err)
		assert.Equal(t, &ReassignResult{Requested: 3, Matched: 2, Modified: 2}, result)
	})

	mt.Run("empty id list", func(mt *mtest.T) {
		_, err := newTestPropertyService(mt).BulkReassignOwner(context.Background(), Scope{}, nil, &target)
		assert.True(t, IsValidation(err))
	})

	mt.Run("missing target", func(mt *mtest.T) {
		_, err := newTestPropertyService(mt).BulkReassignOwner(context.Background(), Scope{}, ids, nil)
		assert.True(t, IsValidation(err))
	})
}

func TestParseObjectIDs(t *testing.T) {
	id := primitive.NewObjectID()

	got, err := ParseObjectIDs([]string{id.Hex(), id.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{id}, got)

	_, err = ParseObjectIDs([]string{"zzz"})
	assert.True(t, IsValidation(err))

	_, err = ParseObjectID("")
	assert.True(t, IsValidation(err))
}
