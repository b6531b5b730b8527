package main

import (
	"hbs/src/boot"
	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/worker"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/organizations/:id/reservations", func(ctx *gin.Context) {
			orgID, ok := uintParam(ctx, "id")
			if !ok {
				return
			}
			var data []models.Reservation
			gdb := db.GetDb()
			q := gdb.
				Model(&models.Reservation{}).
				Where(&models.Reservation{OrganizationID: orgID})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			if from := ctx.Query("check_in_from"); from != "" {
				q = q.Where("check_in_date >= ?", from)
			}
			if err := q.Order("check_in_date ASC").Limit(200).Find(&data).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/reservations/:id", func(ctx *gin.Context) {
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
			if reservation == nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		}).
		GET("/reservations/:id/notifications", func(ctx *gin.Context) {
			id, ok := uintParam(ctx, "id")
			if !ok {
				return
			}
			var data []models.ReservationNotificationLog
			gdb := db.GetDb()
			err := gdb.
				Model(&models.ReservationNotificationLog{}).
				Where(&models.ReservationNotificationLog{ReservationID: id}).
				Order("sent_at DESC").
				Limit(50).
				Find(&data).Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		POST("/reservations/:id/notify", func(ctx *gin.Context) {
			id, ok := uintParam(ctx, "id")
			if !ok {
				return
			}
			var body struct {
				Type types.NotificationType `json:"type" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			app := boot.GetApp()
			result, err := app.Dispatcher.Dispatch(ctx.Request.Context(), id, body.Type)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"sent": result.Sent, "skipped": result.Skipped, "failed": result.Failed})
		}).
		POST("/reservations/:id/payment-link", func(ctx *gin.Context) {
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
			if reservation == nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
				return
			}
			tenant := types.Tenant{OrganizationID: reservation.OrganizationID, BranchID: reservation.BranchID}
			link, err := app.Links.EnsureLink(ctx.Request.Context(), tenant, reservation)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			if link == "" {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "payments not configured for tenant"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"payment_link": link})
		}).
		// guest self-service completion: the only sync-path field the
		// external system never owns
		POST("/reservations/:id/checkin-complete", func(ctx *gin.Context) {
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
			if reservation == nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
				return
			}
			if reservation.OnlineCheckInCompleted {
				ctx.JSON(http.StatusOK, gin.H{"data": reservation})
				return
			}
			now := time.Now().UTC()
			err = app.Store.Reservations.Update(ctx.Request.Context(), id, map[string]any{
				"online_check_in_completed":    true,
				"online_check_in_completed_at": now,
			})
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := app.Pool.Enqueue(asyncContext(), worker.Task{
				Kind:             worker.TaskDispatch,
				ReservationID:    id,
				NotificationType: types.NOTIFY_CHECKIN_CONFIRMATION,
			}); err != nil {
				ctx.JSON(http.StatusOK, gin.H{"completed": true, "notified": false})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"completed": true, "notified": true})
		})
	return g
}
