package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/flairlondon/freeagent-bridge/freeagent"
)

// handleGetInfo fetches the five fixed resource collections
// concurrently and aggregates them keyed by resource name. Fail-fast:
// if any one fetch fails the whole operation fails and no partial
// payload is returned.
func (s *Server) handleGetInfo(ctx context.Context, accessToken string) (int, Envelope) {
	var company, me, categories, bankAccounts, projects json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		company, err = s.upstream.Company(gctx, accessToken)
		return err
	})
	g.Go(func() (err error) {
		me, err = s.upstream.CurrentUser(gctx, accessToken)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.upstream.Categories(gctx, accessToken)
		return err
	})
	g.Go(func() (err error) {
		bankAccounts, err = s.upstream.BankAccounts(gctx, accessToken)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.upstream.ActiveProjects(gctx, accessToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return http.StatusInternalServerError, failureEnvelope("Failed to fetch FreeAgent info", err.Error())
	}

	payload := map[string]json.RawMessage{
		"company":         company,
		"me":              me,
		"categories":      categories,
		"bank_accounts":   bankAccounts,
		"active_projects": projects,
	}
	return http.StatusOK, successEnvelope("Fetched FreeAgent info successfully", payload)
}

func (s *Server) handleGetTransactions(ctx context.Context, accessToken string, request ActionRequest) (int, Envelope) {
	if request.BankAccount == "" {
		return http.StatusBadRequest, failureEnvelope("Missing 'bank_account' in request body.", nil)
	}

	transactions, err := s.upstream.Transactions(ctx, accessToken, request.BankAccount)
	if err != nil {
		return http.StatusInternalServerError, failureEnvelope("FreeAgent API error", err.Error())
	}
	return http.StatusOK, successEnvelope("Fetched transactions successfully", transactions)
}

// handleAttachReceipt posts a new bank transaction explanation with an
// encoded attachment. An existing explanation is deleted first when the
// caller names one; that delete is best-effort and never aborts the
// attach. When both an attachment URL and inline HTML are supplied the
// attachment URL wins.
func (s *Server) handleAttachReceipt(ctx context.Context, accessToken string, request ActionRequest) (int, Envelope) {
	if request.BankTransactionURL == "" || request.Category == "" || (request.Attachment == "" && request.HTMLBody == "") {
		return http.StatusBadRequest,
			failureEnvelope("Missing required fields: bankTransactionUrl, (attachment or htmlBody), category", nil)
	}

	if request.ExplanationURL != "" {
		status, body, err := s.upstream.Delete(ctx, accessToken, request.ExplanationURL)
		if err != nil || (status != http.StatusNoContent && status != http.StatusOK) {
			log.Warn().
				Str("event", "explanation_delete_failed").
				Str("explanation_url", request.ExplanationURL).
				Int("status", status).
				Str("body", body).
				Err(err).
				Msg("failed to delete prior explanation, attaching anyway")
		}
	}

	var attachment *freeagent.Attachment
	if request.Attachment != "" {
		encoded, err := s.upstream.FetchAndEncode(ctx, request.Attachment)
		if err != nil {
			return http.StatusInternalServerError, failureEnvelope("Failed to fetch attachment", err.Error())
		}
		attachment = encoded
	} else {
		attachment = freeagent.EncodeHTML(request.HTMLBody)
	}

	explanation := freeagent.Explanation{
		BankTransaction:   request.BankTransactionURL,
		DatedOn:           request.DatedOn,
		Description:       request.Description,
		GrossValue:        request.GrossValue,
		ExplanationAmount: request.GrossValue,
		Category:          request.Category,
		Attachment:        attachment,
	}
	if _, err := s.upstream.CreateExplanation(ctx, accessToken, explanation); err != nil {
		return http.StatusInternalServerError, failureEnvelope("FreeAgent API error", err.Error())
	}

	return http.StatusOK, successEnvelope("Receipt attached to FreeAgent transaction", nil)
}

// handleDeleteExplanation deletes a caller-supplied explanation URL.
// Upstream 204 and 200 both count as success. Any other status is a
// non-fatal failure: the caller still gets a well-formed envelope
// carrying the upstream body.
func (s *Server) handleDeleteExplanation(ctx context.Context, accessToken string, request ActionRequest) (int, Envelope) {
	if request.ExplanationURL == "" {
		return http.StatusBadRequest, failureEnvelope("Missing 'explanationUrl' in request body.", nil)
	}

	status, body, err := s.upstream.Delete(ctx, accessToken, request.ExplanationURL)
	if err != nil {
		return http.StatusInternalServerError, failureEnvelope("Failed to delete explanation", err.Error())
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return http.StatusOK, failureEnvelope("Failed to delete explanation", body)
	}
	return http.StatusOK, successEnvelope("Explanation deleted successfully", nil)
}

// handleDownloadAttachment is the legacy action: it fetches attachment
// metadata by URL and returns the nested attachment object.
func (s *Server) handleDownloadAttachment(ctx context.Context, accessToken string, request ActionRequest) (int, Envelope) {
	if request.URL == "" {
		return http.StatusBadRequest, failureEnvelope("Missing 'url' in request body.", nil)
	}

	status, body, err := s.upstream.AttachmentInfo(ctx, accessToken, request.URL)
	if err != nil {
		return http.StatusInternalServerError, failureEnvelope("Error getting url", err.Error())
	}
	if status != http.StatusOK {
		return http.StatusInternalServerError, failureEnvelope("Error getting url", string(body))
	}

	attachment, err := freeagent.AttachmentURL(body)
	if err != nil {
		return http.StatusInternalServerError, failureEnvelope("Error getting url", err.Error())
	}
	return http.StatusOK, successEnvelope("Attachment url retrieved", map[string]json.RawMessage{"url": attachment})
}
