package handler

import (
	"net/http"

	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListContacts(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	contacts, err := h.mgmt.ListContacts(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": contacts})
}

func (h *Handler) AddContact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req transport.AddContactRequest
	if !h.bindJSON(c, &req) {
		return
	}

	contact, err := h.mgmt.AddContact(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, contact)
}

func (h *Handler) RemoveContact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	contactID, ok := uuidParam(c, "contactId")
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.mgmt.RemoveContact(c.Request.Context(), actor, id, contactID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetPrimaryContact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	contactID, ok := uuidParam(c, "contactId")
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.mgmt.SetPrimaryContact(c.Request.Context(), actor, id, contactID)) {
		return
	}
	c.Status(http.StatusNoContent)
}
