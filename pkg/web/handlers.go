// Package web provides HTTP handlers and REST API endpoints for the sheet API.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gridflow/gridflow/pkg/automation"
	"github.com/gridflow/gridflow/pkg/broadcast"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/rows"
	"github.com/gridflow/gridflow/pkg/rules"
	"github.com/gridflow/gridflow/pkg/sheets"
)

type APIHandlers struct {
	sheetService      *sheets.Service
	importer          *sheets.Importer
	rowService        *rows.Service
	ruleService       *rules.Service
	automationService *automation.Service
	broadcaster       broadcast.Broadcaster
	persistence       persistence.Persistence
	validator         *validator.Validate
	logger            *slog.Logger
}

func NewAPIHandlers(
	sheetService *sheets.Service,
	importer *sheets.Importer,
	rowService *rows.Service,
	ruleService *rules.Service,
	automationService *automation.Service,
	broadcaster broadcast.Broadcaster,
	p persistence.Persistence,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		sheetService:      sheetService,
		importer:          importer,
		rowService:        rowService,
		ruleService:       ruleService,
		automationService: automationService,
		broadcaster:       broadcaster,
		persistence:       p,
		validator:         validator,
		logger:            logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// Sheets

func (h *APIHandlers) ListSheets(c fiber.Ctx) error {
	listed, err := h.sheetService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(listed)
}

func (h *APIHandlers) CreateSheet(c fiber.Ctx) error {
	var req CreateSheetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sheet, err := h.sheetService.Create(c.Context(), req.Name, req.Columns)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sheet)
}

func (h *APIHandlers) GetSheet(c fiber.Ctx) error {
	sheet, err := h.sheetService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	return c.JSON(sheet)
}

func (h *APIHandlers) UpdateSheet(c fiber.Ctx) error {
	var req UpdateSheetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sheet, err := h.sheetService.Update(c.Context(), c.Params("id"), sheets.UpdateSheetInput{
		Name:    req.Name,
		Columns: req.Columns,
	})
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	return c.JSON(sheet)
}

func (h *APIHandlers) DeleteSheet(c fiber.Ctx) error {
	err := h.sheetService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImportCSV bulk-loads a CSV file (multipart field "file") into the sheet.
func (h *APIHandlers) ImportCSV(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "Multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "Failed to open uploaded file")
	}

	defer func() {
		_ = file.Close()
	}()

	result, err := h.importer.ImportCSV(c.Context(), c.Params("id"), file)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "sheet not found")
		}

		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// RebalanceSheet reassigns the sheet's row positions to consecutive integers.
func (h *APIHandlers) RebalanceSheet(c fiber.Ctx) error {
	sheetID := c.Params("id")

	_, err := h.sheetService.Get(c.Context(), sheetID)
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	err = h.rowService.Rebalance(c.Context(), sheetID)
	if err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Rows

func (h *APIHandlers) ListRows(c fiber.Ctx) error {
	sheetID := c.Params("id")

	_, err := h.sheetService.Get(c.Context(), sheetID)
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	listed, err := h.rowService.List(c.Context(), sheetID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(listed)
}

func (h *APIHandlers) CreateRow(c fiber.Ctx) error {
	sheetID := c.Params("id")

	_, err := h.sheetService.Get(c.Context(), sheetID)
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	var req CreateRowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	row, err := h.rowService.Insert(c.Context(), sheetID, req.Data, req.Position)
	if err != nil {
		return internalError(c, err)
	}

	h.broadcaster.Broadcast(c.Context(), row.SheetID, events.NewRowCreated(row))

	return c.Status(fiber.StatusCreated).JSON(row)
}

func (h *APIHandlers) GetRow(c fiber.Ctx) error {
	row, err := h.rowService.Get(c.Context(), c.Params("rowId"))
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	return c.JSON(row)
}

// UpdateRow merges a partial cell update into the row, broadcasts the result
// to live observers, and hands the update to the automation matcher. The
// response does not wait on any action execution.
func (h *APIHandlers) UpdateRow(c fiber.Ctx) error {
	var req UpdateRowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if len(req.Data) == 0 {
		return badRequest(c, "Update data must not be empty")
	}

	row, err := h.rowService.Update(c.Context(), c.Params("rowId"), req.Data)
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	h.broadcaster.Broadcast(c.Context(), row.SheetID, events.NewRowUpdated(row))

	err = h.automationService.OnRowUpdated(c.Context(), row, rules.TouchedColumns(req.Data))
	if err != nil {
		// The row update already succeeded; enqueue failures must not fail
		// the request.
		h.logger.ErrorContext(c.Context(), "Failed to enqueue automations for row update",
			"row_id", row.ID, "error", err)
	}

	return c.JSON(row)
}

func (h *APIHandlers) RepositionRow(c fiber.Ctx) error {
	var req RepositionRowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rowID := c.Params("rowId")

	err := h.rowService.Reposition(c.Context(), rowID, *req.Position)
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	row, err := h.rowService.Get(c.Context(), rowID)
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	h.broadcaster.Broadcast(c.Context(), row.SheetID, events.NewRowUpdated(row))

	return c.JSON(row)
}

func (h *APIHandlers) DeleteRow(c fiber.Ctx) error {
	rowID := c.Params("rowId")

	row, err := h.rowService.Get(c.Context(), rowID)
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	err = h.rowService.Delete(c.Context(), rowID)
	if err != nil {
		return handleStoreError(c, err, "row")
	}

	h.broadcaster.Broadcast(c.Context(), row.SheetID, events.NewRowDeleted(rowID))

	return c.SendStatus(fiber.StatusNoContent)
}

// Rules

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	sheetID := c.Params("id")

	_, err := h.sheetService.Get(c.Context(), sheetID)
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	listed, err := h.ruleService.List(c.Context(), sheetID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(listed)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	sheetID := c.Params("id")

	_, err := h.sheetService.Get(c.Context(), sheetID)
	if err != nil {
		return handleStoreError(c, err, "sheet")
	}

	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule, err := h.ruleService.Create(c.Context(), sheetID, rules.NewRuleInput{
		TriggerColumn: req.TriggerColumn,
		TriggerValue:  req.TriggerValue,
		ActionType:    models.ActionType(req.ActionType),
		ActionConfig:  req.ActionConfig,
		Enabled:       enabled,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.ruleService.Get(c.Context(), c.Params("ruleId"))
	if err != nil {
		return handleStoreError(c, err, "rule")
	}

	return c.JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	var req UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	input := rules.UpdateRuleInput{
		TriggerColumn: req.TriggerColumn,
		TriggerValue:  req.TriggerValue,
		ActionConfig:  req.ActionConfig,
		Enabled:       req.Enabled,
	}

	if req.ActionType != nil {
		actionType := models.ActionType(*req.ActionType)
		input.ActionType = &actionType
	}

	rule, err := h.ruleService.Update(c.Context(), c.Params("ruleId"), input)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "rule not found")
		}

		return badRequest(c, err.Error())
	}

	return c.JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	err := h.ruleService.Delete(c.Context(), c.Params("ruleId"))
	if err != nil {
		return handleStoreError(c, err, "rule")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetRuleLogs returns the rule's execution log, newest first.
func (h *APIHandlers) GetRuleLogs(c fiber.Ctx) error {
	ruleID := c.Params("ruleId")

	_, err := h.ruleService.Get(c.Context(), ruleID)
	if err != nil {
		return handleStoreError(c, err, "rule")
	}

	entries, err := h.ruleService.Logs(c.Context(), ruleID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(entries)
}
