package service_test

import (
	"errors"
	"strings"
	"testing"

	"delivops/internal/model"
	"delivops/internal/service"
	"delivops/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChauffeurSendsActivationAfterCommit(t *testing.T) {
	e := newEnv(t)

	res, err := e.chauffeurs.Create(e.ctx, e.tenant.ID, "admin|1", service.CreateChauffeurRequest{
		Email:       " bob@example.com ",
		DisplayName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", res.Email)
	assert.True(t, res.IsActive)
	assert.Nil(t, res.UserID)

	require.Len(t, e.mailer.sent, 1)
	assert.True(t, strings.HasPrefix(e.mailer.sent[0], "bob@example.com https://app.example.com/activate?token="))

	count, err := e.chauffeurs.Count(e.ctx, e.tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Count)
}

func TestCreateChauffeurMailerFailureKeepsDriver(t *testing.T) {
	e := newEnv(t)
	e.mailer.err = errors.New("smtp down")

	_, err := e.chauffeurs.Create(e.ctx, e.tenant.ID, "admin|1", service.CreateChauffeurRequest{Email: "c@example.com", DisplayName: "C"})
	require.NoError(t, err)

	list, err := e.chauffeurs.List(e.ctx, e.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateChauffeurRespectsTenantLimit(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Model(&model.Tenant{}).Where("id = ?", e.tenant.ID).Update("max_chauffeurs", 1).Error)
	e.fx.Driver(e.tenant.ID, "driver|1", "Alice")

	_, err := e.chauffeurs.Create(e.ctx, e.tenant.ID, "admin|1", service.CreateChauffeurRequest{Email: "b@example.com", DisplayName: "Bob"})
	assertKind(t, err, apperror.KindBadRequest, "Driver limit reached")
	assert.Empty(t, e.mailer.sent)

	count, err := e.chauffeurs.Count(e.ctx, e.tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Count)
	assert.Equal(t, 1, count.Subscribed)
}

func TestUpdateChauffeurDeactivates(t *testing.T) {
	e := newEnv(t)
	driver := e.fx.Driver(e.tenant.ID, "driver|1", "Alice")
	inactive := false

	res, err := e.chauffeurs.Update(e.ctx, e.tenant.ID, "admin|1", driver.ID.String(), service.UpdateChauffeurRequest{
		DisplayName: strp("Alice B."),
		IsActive:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", res.DisplayName)
	assert.False(t, res.IsActive)

	var stored model.Chauffeur
	require.NoError(t, e.db.First(&stored, "id = ?", driver.ID).Error)
	assert.False(t, stored.IsActive)

	_, err = e.chauffeurs.Update(e.ctx, e.tenant.ID, "admin|1", "nope", service.UpdateChauffeurRequest{})
	assertKind(t, err, apperror.KindNotFound, "Driver not found")
}

func TestDeleteChauffeurWithToursConflicts(t *testing.T) {
	s := newTourSetup(t)
	s.declare(t, s.std, 0, 1, 1)

	err := s.chauffeurs.Delete(s.ctx, s.tenant.ID, "admin|1", s.driver.ID.String())
	assertKind(t, err, apperror.KindConflict, "Driver has recorded tours")

	idle := s.fx.Driver(s.tenant.ID, "driver|2", "Bob")
	require.NoError(t, s.chauffeurs.Delete(s.ctx, s.tenant.ID, "admin|1", idle.ID.String()))

	err = s.chauffeurs.Delete(s.ctx, s.tenant.ID, "admin|1", idle.ID.String())
	assertKind(t, err, apperror.KindNotFound, "Driver not found")
}
