package api

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"voice-campaign/internal/contacts"
	"voice-campaign/internal/database"
	"voice-campaign/internal/models"
	pm "voice-campaign/pkg/models"

	"github.com/gin-gonic/gin"
)

// maxUpload bounds contact list uploads.
const maxUpload = 10 << 20

type ContactHandler struct {
	Leads *database.LeadStore
}

func NewContactHandler(leads *database.LeadStore) *ContactHandler {
	return &ContactHandler{Leads: leads}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	leads, err := h.Leads.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if leads == nil {
		leads = []models.Lead{}
	}
	c.JSON(http.StatusOK, leads)
}

// CreateContactRequest for adding a single lead
type CreateContactRequest struct {
	ID         int    `json:"id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	Email      string `json:"email"`
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	contact := pm.Contact{
		ID:         req.ID,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      phone,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		Email:      strings.ToUpper(strings.TrimSpace(req.Email)),
	}
	if _, err := h.Leads.Import(c.Request.Context(), []pm.Contact{contact}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "Contact created", "phone": phone})
}

// UploadContacts imports a contact list sent either as the multipart field
// "file" or as the raw request body.
func (h *ContactHandler) UploadContacts(c *gin.Context) {
	var r io.Reader
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		r = f
	} else {
		r = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	}

	parsed, err := contacts.Parse(r)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read contact list: " + err.Error()})
		return
	}
	if len(parsed) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid contacts found"})
		return
	}

	created, err := h.Leads.Import(c.Request.Context(), parsed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store contacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"parsed": len(parsed), "created": created})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	err = h.Leads.Delete(c.Request.Context(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

// ResetContacts marks every lead as pending again.
func (h *ContactHandler) ResetContacts(c *gin.Context) {
	if err := h.Leads.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Contacts reset"})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	leads, err := h.Leads.List(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"id", "nombre", "telefono", "email", "estado", "resultado", "interesado"})
	for _, l := range leads {
		w.Write([]string{
			strconv.Itoa(l.ExternalID),
			l.FullName,
			l.Phone,
			l.Email,
			l.Status,
			l.LastOutcome,
			strconv.FormatBool(l.Interested),
		})
	}
	w.Flush()
}
