package main

import (
	"hbs/src/boot"
	"hbs/src/config"
	"hbs/src/worker"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// messagingWebhookRoutes handles the WhatsApp webhook: the GET handshake
// echoes the challenge when the verify token matches, the POST extracts
// the first text message of the envelope and hands it to the guest
// responder off the request path.
func messagingWebhookRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/webhook/whatsapp", func(ctx *gin.Context) {
		mode := ctx.Query("hub.mode")
		token := ctx.Query("hub.verify_token")
		challenge := ctx.Query("hub.challenge")
		if mode == "subscribe" && token != "" && token == config.MessagingVerifyToken() {
			ctx.String(http.StatusOK, challenge)
			return
		}
		ctx.Status(http.StatusForbidden)
	})
	apiv1.POST("/webhook/whatsapp", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		value := gjson.GetBytes(payload, "entry.0.changes.0.value")
		if !value.Exists() {
			// delivery receipts and status callbacks share the endpoint
			ctx.Status(http.StatusOK)
			return
		}
		message := value.Get("messages.0")
		if !message.Exists() || message.Get("type").String() != "text" {
			ctx.Status(http.StatusOK)
			return
		}
		phoneNumberID := value.Get("metadata.phone_number_id").String()
		from := message.Get("from").String()
		text := message.Get("text.body").String()
		profileName := value.Get("contacts.0.profile.name").String()
		if phoneNumberID == "" || from == "" {
			ctx.Status(http.StatusOK)
			return
		}

		app := boot.GetApp()
		tenant, err := app.Vault.FindTenantByMessagingPhoneID(ctx.Request.Context(), phoneNumberID)
		if err != nil {
			log.Printf("[MessagingWebhook] tenant lookup failed for phone number id %s: %s\n", phoneNumberID, err.Error())
			ctx.Status(http.StatusOK)
			return
		}
		if tenant.OrganizationID == 0 {
			log.Printf("[MessagingWebhook] no tenant for phone number id %s, dropping message\n", phoneNumberID)
			ctx.Status(http.StatusOK)
			return
		}

		if err := app.Pool.Enqueue(asyncContext(), worker.Task{
			Kind:           worker.TaskInboundMessage,
			OrganizationID: tenant.OrganizationID,
			BranchID:       tenant.BranchID,
			From:           from,
			Text:           text,
			ProfileName:    profileName,
		}); err != nil {
			log.Printf("[MessagingWebhook] failed to enqueue inbound message: %s\n", err.Error())
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
