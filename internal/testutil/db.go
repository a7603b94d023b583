// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"delivops/internal/database"
	"delivops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Fixtures creates tenant-scoped rows with sensible defaults.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(v interface{}) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(v).Error)
}

func (f *Fixtures) Tenant(name string) *model.Tenant {
	tenant := &model.Tenant{Name: name, Slug: name + "-" + uuid.NewString()[:8], Timezone: "UTC"}
	f.create(tenant)
	return tenant
}

func (f *Fixtures) User(tenantID uuid.UUID, sub, role string) *model.User {
	user := &model.User{TenantID: tenantID, AuthSub: sub, Email: sub + "@example.com", Role: role, IsActive: true}
	f.create(user)
	return user
}

// Driver creates a CHAUFFEUR user for sub and the chauffeur linked to it.
func (f *Fixtures) Driver(tenantID uuid.UUID, sub, name string) *model.Chauffeur {
	user := f.User(tenantID, sub, model.RoleChauffeur)
	driver := &model.Chauffeur{TenantID: tenantID, UserID: &user.ID, Email: user.Email, DisplayName: name, IsActive: true}
	f.create(driver)
	return driver
}

func (f *Fixtures) Client(tenantID uuid.UUID, name string) *model.Client {
	client := &model.Client{TenantID: tenantID, Name: name, IsActive: true}
	f.create(client)
	return client
}

// Group creates a tariff group; clientID nil makes it global.
func (f *Fixtures) Group(tenantID uuid.UUID, clientID *uuid.UUID, name string) *model.TariffGroup {
	group := &model.TariffGroup{TenantID: tenantID, ClientID: clientID, Code: name, DisplayName: name, Unit: "colis", IsActive: true}
	f.create(group)
	return group
}

// Tariff creates a version valid from from to to (nil = open-ended).
func (f *Fixtures) Tariff(group *model.TariffGroup, price, margin string, from time.Time, to *time.Time) *model.Tariff {
	tariff := &model.Tariff{
		TenantID:      group.TenantID,
		TariffGroupID: group.ID,
		PriceExVAT:    decimal.RequireFromString(price),
		MarginExVAT:   decimal.RequireFromString(margin),
		EffectiveFrom: model.TruncateDate(from),
	}
	if to != nil {
		d := model.TruncateDate(*to)
		tariff.EffectiveTo = &d
	}
	f.create(tariff)
	return tariff
}

// Days returns today shifted by n calendar days.
func Days(n int) time.Time {
	return model.Today().AddDate(0, 0, n)
}

// DaysPtr is Days returning a pointer.
func DaysPtr(n int) *time.Time {
	d := Days(n)
	return &d
}
