package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// handleUpload stores an uploaded table, starts a session for it and returns
// a preview of its first rows.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile(chat.UploadField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{Error: "no file provided"})
	}

	filename := filepath.Base(fh.Filename)
	if !table.IsSupported(filename) {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{
			Error:  "unsupported file format",
			Detail: "supported formats: " + strings.Join(table.SupportedExtensions(), ", "),
		})
	}

	if fh.Size > s.config.MaxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(chat.ErrorResponse{
			Error:  "file too large",
			Detail: "maximum size is " + table.HumanSize(s.config.MaxUploadBytes),
		})
	}

	stored := filepath.Join(s.config.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	if err := c.SaveFile(fh, stored); err != nil {
		s.logger.Error("failed to save upload", "filename", filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(chat.ErrorResponse{Error: "failed to save file"})
	}

	t, err := table.Load(stored)
	if err != nil {
		_ = os.Remove(stored)
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{
			Error:  "failed to parse file",
			Detail: err.Error(),
		})
	}

	info := &transcript.FileInfo{
		Filename:   filename,
		Filepath:   stored,
		Rows:       t.NumRows(),
		Columns:    t.NumColumns(),
		Size:       table.HumanSize(fh.Size),
		UploadedAt: s.now(),
	}

	sess, err := s.store.Create(c.Context(), info)
	if err != nil {
		_ = os.Remove(stored)
		return s.sessionError(c, err)
	}
	s.tables.put(sess.ID, t)

	s.logger.Info("table uploaded",
		"session_id", sess.ID,
		"filename", filename,
		"rows", info.Rows,
		"columns", info.Columns,
	)

	return c.JSON(chat.UploadResponse{
		Success:     true,
		SessionID:   sess.ID,
		FileInfo:    *info,
		ColumnNames: t.Columns,
		PreviewData: t.Preview(s.config.PreviewRows),
	})
}
