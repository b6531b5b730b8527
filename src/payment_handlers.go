package main

import (
	"hbs/src/boot"
	"hbs/src/payments"
	"hbs/src/worker"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// paymentWebhookRoutes accepts provider callbacks. Parsing happens on the
// request path; everything else runs on the worker pool so the provider
// gets its 200 within the handler deadline. Internal failures are never
// surfaced: redelivery of an event that cannot be processed would loop
// forever.
func paymentWebhookRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/webhook/payment", func(ctx *gin.Context) {
		// some providers probe the endpoint with an echo challenge
		if challenge := ctx.Query("challenge"); challenge != "" {
			ctx.String(http.StatusOK, challenge)
			return
		}
		ctx.Status(http.StatusOK)
	})
	apiv1.POST("/webhook/payment", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("[PaymentWebhook] error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := payments.ParsePaymentEvent(payload)
		if err != nil {
			log.Printf("[PaymentWebhook] rejecting unparseable payload: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[PaymentWebhook] received %s for link %q\n", event.Event, event.LinkID)

		app := boot.GetApp()
		if err := app.Pool.Enqueue(asyncContext(), worker.Task{
			Kind:    worker.TaskPaymentEvent,
			Payload: payload,
		}); err != nil {
			// acknowledged anyway; the event is lost only if the backlog
			// is also unavailable, which the log line records
			log.Printf("[PaymentWebhook] failed to enqueue event: %s\n", err.Error())
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	})
	return apiv1
}
