package server

import (
	"net/http"
	"strings"

	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	"github.com/AdrianPopi/acont/internal/providers/pdf"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListEligibleInvoices(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("client_id"))
	if clientID == "" {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "client_id is required"))
		return
	}

	resp, err := s.creditNoteSvc.EligibleInvoices(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSourceInvoice(c *gin.Context) {
	resp, err := s.creditNoteSvc.SourceInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCreditNote(c *gin.Context) {
	var req creditnotedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditNoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCreditNotes(c *gin.Context) {
	var req creditnotedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditNoteSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCreditNoteByID(c *gin.Context) {
	resp, err := s.creditNoteSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreditNoteMeta(c *gin.Context) {
	issueDate, err := parseOptionalDate("issue_date", c.Query("issue_date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.creditNoteSvc.Meta(c.Request.Context(), issueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IssueCreditNote(c *gin.Context) {
	resp, err := s.creditNoteSvc.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoidCreditNote(c *gin.Context) {
	req, err := bindVoidRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.creditNoteSvc.Void(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCreditNote(c *gin.Context) {
	if err := s.creditNoteSvc.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) RenderCreditNotePDF(c *gin.Context) {
	detail, err := s.creditNoteSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writePDF(c, pdf.FromCreditNote(detail, s.seller))
}
