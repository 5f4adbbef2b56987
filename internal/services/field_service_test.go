package services

import (
	"context"
	"testing"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFieldService() (*FieldService, *fakeFieldStore, *recordingNotifier) {
	store := newFakeFieldStore()
	n := &recordingNotifier{}
	return NewFieldService(store, fakeLocations{}, n, zap.NewNop()), store, n
}

func fieldReq() *models.FieldRequest {
	return &models.FieldRequest{FieldName: " North plot ", Area: 4.5, Latitude: 15.8, Longitude: 78.0, MandalID: 1, VillageID: 10}
}

func TestFieldService_Create(t *testing.T) {
	svc, _, _ := newFieldService()
	ctx := context.Background()

	f, err := svc.Create(ctx, testFarmer, fieldReq())
	require.NoError(t, err)
	assert.Equal(t, "North plot", f.FieldName)
	assert.Equal(t, testFarmer.ID, f.FarmerID)
	assert.Equal(t, models.StatusPending, f.Status)
	assert.False(t, f.Verified)

	_, err = svc.Create(ctx, testEmployee, fieldReq())
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestFieldService_CreateValidation(t *testing.T) {
	svc, store, _ := newFieldService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *models.FieldRequest)
	}{
		{"blank name", func(r *models.FieldRequest) { r.FieldName = "  " }},
		{"zero area", func(r *models.FieldRequest) { r.Area = 0 }},
		{"latitude", func(r *models.FieldRequest) { r.Latitude = 91 }},
		{"longitude", func(r *models.FieldRequest) { r.Longitude = -181 }},
		{"missing village", func(r *models.FieldRequest) { r.VillageID = 0 }},
		{"village outside mandal", func(r *models.FieldRequest) { r.VillageID = 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := fieldReq()
			tt.mutate(req)
			_, err := svc.Create(ctx, testFarmer, req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%v", err)
		})
	}
	assert.Empty(t, store.fields)
}

func TestFieldService_OwnershipScoping(t *testing.T) {
	svc, store, _ := newFieldService()
	ctx := context.Background()
	mine := store.add(testFarmer.ID, 3)
	store.add(otherFarmer.ID, 5)

	_, err := svc.Get(ctx, otherFarmer, mine.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Update(ctx, otherFarmer, mine.ID, fieldReq())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(ctx, otherFarmer, mine.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := svc.List(ctx, testFarmer, models.FieldFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, err = svc.List(ctx, testEmployee, models.FieldFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.List(ctx, testEmployee, models.FieldFilter{Status: "archived"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFieldService_Pipeline(t *testing.T) {
	svc, store, n := newFieldService()
	ctx := context.Background()
	f := store.add(testFarmer.ID, 3)

	_, err := svc.Approve(ctx, testAdmin, f.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	verified, err := svc.Verify(ctx, testEmployee, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmployeeVerified, verified.Status)
	assert.True(t, verified.Verified)

	_, err = svc.Update(ctx, testFarmer, f.ID, fieldReq())
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, testFarmer, f.ID)))

	_, err = svc.Approve(ctx, testEmployee, f.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	approved, err := svc.Approve(ctx, testAdmin, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdminApproved, approved.Status)
	assert.NotNil(t, approved.ApprovalDate)

	_, err = svc.Reject(ctx, testAdmin, f.ID, "late")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	require.Len(t, n.events, 2)
	for _, ev := range n.events {
		assert.Equal(t, models.EntityField, ev.Entity)
		assert.Equal(t, testFarmer.ID, ev.FarmerID)
	}
	require.Len(t, store.logs, 2)
	assert.Equal(t, models.ActionApprove, store.logs[1].Action)
	assert.Equal(t, testAdmin.Role, store.logs[1].ActorRole)
}

func TestFieldService_RejectThenCorrect(t *testing.T) {
	svc, store, _ := newFieldService()
	ctx := context.Background()
	f := store.add(testFarmer.ID, 3)

	rejected, err := svc.Reject(ctx, testEmployee, f.ID, "coordinates are off")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "coordinates are off", rejected.RejectionReason)
	assert.False(t, rejected.Verified)

	updated, err := svc.Update(ctx, testFarmer, f.ID, fieldReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Empty(t, updated.RejectionReason)
	assert.Equal(t, 4.5, updated.Area)
}

func TestFieldService_DeleteUnverified(t *testing.T) {
	svc, store, _ := newFieldService()
	ctx := context.Background()
	f := store.add(testFarmer.ID, 3)

	require.NoError(t, svc.Delete(ctx, testFarmer, f.ID))
	_, err := svc.Get(ctx, testFarmer, f.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, testAdmin, f.ID)))
}
