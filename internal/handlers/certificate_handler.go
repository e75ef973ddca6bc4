package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
	"github.com/soins-plus/training-service/internal/validator"
)

type CertificateHandler struct {
	BaseHandler
	certificateService services.CertificateService
	validator          *validator.Validator
}

func NewCertificateHandler(
	certificateService services.CertificateService,
	validator *validator.Validator,
	logger utils.Logger,
) *CertificateHandler {
	return &CertificateHandler{
		BaseHandler:        NewBaseHandler(logger),
		certificateService: certificateService,
		validator:          validator,
	}
}

// IssueCertificate issues the certificate of a completed enrollment.
// Without file_url the configured renderer builds the link.
// @Summary Issue certificate
// @Tags certificates
// @Accept json
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Param request body validator.IssueCertificateRequest false "Pre-rendered file URL"
// @Success 201 {object} models.Certificate
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /enrollments/{id}/certificate [post]
func (h *CertificateHandler) IssueCertificate(c *gin.Context) {
	enrollmentID := h.parseIDParam(c, "id")
	if enrollmentID == 0 {
		return
	}

	var req validator.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	issuerID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Issuing certificate", "enrollment_id", enrollmentID)

	cert, err := h.certificateService.IssueCertificate(c.Request.Context(), enrollmentID, req.FileURL, issuerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cert)
}

// ListMyCertificates lists the caller's certificates
// @Summary List my certificates
// @Tags certificates
// @Produce json
// @Success 200 {array} models.Certificate
// @Router /certificates/me [get]
func (h *CertificateHandler) ListMyCertificates(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	certs, err := h.certificateService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certs, "total": len(certs)})
}

// GetCertificate returns a certificate to its owner or to staff
// @Summary Get certificate
// @Tags certificates
// @Produce json
// @Param id path uint true "Certificate ID"
// @Success 200 {object} models.Certificate
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /certificates/{id} [get]
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	cert, err := h.certificateService.GetCertificate(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}
