package main

import (
	"context"
	"errors"
	"hbs/src/boot"
	"hbs/src/pms"
	"hbs/src/syncer"
	"hbs/src/types"
	"hbs/src/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func syncHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/organizations/:id/sync", func(ctx *gin.Context) {
			tenant, ok := tenantFromRequest(ctx)
			if !ok {
				return
			}
			var body types.SyncRunRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			tenant.BranchID = body.BranchID
			start, err := utils.ParseLocalDate(body.StartDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseLocalDate(body.EndDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if end.Before(start) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "end_date is before start_date"})
				return
			}
			app := boot.GetApp()
			synced, err := app.Reconciler.Reconcile(ctx.Request.Context(), tenant, types.SyncWindow{Start: start, End: end})
			if err != nil {
				status := http.StatusBadGateway
				if errors.Is(err, syncer.ErrRunInFlight) {
					status = http.StatusConflict
				} else if errors.Is(err, types.ErrNotConfigured) {
					status = http.StatusUnprocessableEntity
				}
				ctx.JSON(status, gin.H{"error": err.Error(), "synced": synced})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"synced": synced})
		}).
		POST("/organizations/:id/sync/catchup", func(ctx *gin.Context) {
			tenant, ok := tenantFromRequest(ctx)
			if !ok {
				return
			}
			var body types.CatchUpRunRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			tenant.BranchID = body.BranchID
			cutoff, err := utils.ParseLocalDate(body.CheckoutOnAfter)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			app := boot.GetApp()
			synced, err := app.Reconciler.Reconcile(ctx.Request.Context(), tenant, types.SyncWindow{CheckoutOnAfter: cutoff})
			if err != nil {
				status := http.StatusBadGateway
				if errors.Is(err, syncer.ErrRunInFlight) {
					status = http.StatusConflict
				} else if errors.Is(err, types.ErrNotConfigured) {
					status = http.StatusUnprocessableEntity
				}
				ctx.JSON(status, gin.H{"error": err.Error(), "synced": synced})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"synced": synced})
		}).
		POST("/organizations/:id/integrations/pms/validate", func(ctx *gin.Context) {
			tenant, ok := tenantFromRequest(ctx)
			if !ok {
				return
			}
			var body struct {
				BranchID *uint `json:"branch_id,omitempty"`
			}
			_ = ctx.ShouldBindJSON(&body)
			tenant.BranchID = body.BranchID
			app := boot.GetApp()
			settings, err := app.Vault.ResolvePms(ctx.Request.Context(), tenant)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "valid": false})
				return
			}
			valid := pms.NewClient(settings, tenant).ValidateConnection(ctx.Request.Context())
			ctx.JSON(http.StatusOK, gin.H{"valid": valid})
		}).
		GET("/reservations/:id/sync-history", func(ctx *gin.Context) {
			id, ok := uintParam(ctx, "id")
			if !ok {
				return
			}
			limit := 50
			if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "50")); err == nil && l > 0 {
				limit = l
			}
			app := boot.GetApp()
			entries, err := app.Store.Ledger.ForReservation(ctx.Request.Context(), id, limit)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
		}).
		POST("/reservations/:id/resync", func(ctx *gin.Context) {
			id, ok := uintParam(ctx, "id")
			if !ok {
				return
			}
			app := boot.GetApp()
			reservation, err := app.Store.Reservations.FindByID(ctx.Request.Context(), id)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if reservation == nil || reservation.ExternalID == nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found or has no external id"})
				return
			}
			tenant := types.Tenant{OrganizationID: reservation.OrganizationID, BranchID: reservation.BranchID}
			settings, err := app.Vault.ResolvePms(ctx.Request.Context(), tenant)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ext, err := pms.NewClient(settings, tenant).GetReservation(ctx.Request.Context(), *reservation.ExternalID)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			updated, err := app.Reconciler.ReconcileExternal(ctx.Request.Context(), tenant, ext)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": updated})
		})
	return g
}

func tenantFromRequest(ctx *gin.Context) (types.Tenant, bool) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return types.Tenant{}, false
	}
	return types.Tenant{OrganizationID: id}, true
}

func uintParam(ctx *gin.Context, name string) (uint, bool) {
	atoi, err := strconv.Atoi(ctx.Params.ByName(name))
	if err != nil || atoi <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(atoi), true
}

func asyncContext() context.Context {
	return context.Background()
}
