package backup

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/mirror"

	"github.com/gofiber/fiber/v2"
)

const maxImportSize = 10 << 20

func exportCSV(c *fiber.Ctx, cfg *config.Config, vendorID uint) ([]byte, int, error) {
	rows, err := ExportRows(c.UserContext(), database.DB, vendorID, cfg.Location())
	if err != nil {
		config.LogError(config.GetLogger(), "backup", "exportCSV", "export failed", vendorID, err)
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError, "could not export transactions")
	}
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, rows); err != nil {
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError, "could not encode csv")
	}
	return buf.Bytes(), len(rows), nil
}

func runImport(c *fiber.Ctx, cfg *config.Config, sync *mirror.SyncService, vendorID uint, data []byte) error {
	dec, err := DecodeCSV(bytes.NewReader(data), cfg.Location())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	res, err := Import(c.UserContext(), database.DB, sync, vendorID, dec)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "import failed")
	}
	if err := cache.InvalidateSummary(c.UserContext(), vendorID); err != nil {
		config.LogError(config.GetLogger(), "backup", "runImport", "dashboard cache not invalidated", vendorID, err)
	}
	return c.JSON(res)
}

// GET /api/backup/export
func ExportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		data, _, err := exportCSV(c, cfg, vendorID)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("kada-backup-%s.csv", time.Now().In(cfg.Location()).Format("2006-01-02"))
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		return c.Send(data)
	}
}

// POST /api/backup/import (multipart, field "file")
func ImportHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if fh.Size > maxImportSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file is too large")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read file")
		}
		defer f.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(f); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read file")
		}
		return runImport(c, cfg, sync, vendorID, buf.Bytes())
	}
}

func requireStore(store ObjectStore) error {
	if store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "cloud backup is not configured")
	}
	return nil
}

// POST /api/backup/cloud
func CloudBackupHandler(cfg *config.Config, store ObjectStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireStore(store); err != nil {
			return err
		}
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		data, n, err := exportCSV(c, cfg, vendorID)
		if err != nil {
			return err
		}

		name := ObjectName(vendorID, time.Now())
		if err := store.Put(c.UserContext(), name, "text/csv", data); err != nil {
			config.LogError(config.GetLogger(), "backup", "CloudBackupHandler", "upload failed", name, err)
			return fiber.NewError(fiber.StatusBadGateway, "cloud backup failed")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"object": name, "rows": n})
	}
}

// POST /api/backup/cloud/restore - imports the newest cloud backup.
func CloudRestoreHandler(cfg *config.Config, store ObjectStore, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireStore(store); err != nil {
			return err
		}
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		name, data, err := store.Latest(c.UserContext(), ObjectPrefix(vendorID))
		if errors.Is(err, ErrNoBackup) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			config.LogError(config.GetLogger(), "backup", "CloudRestoreHandler", "download failed", vendorID, err)
			return fiber.NewError(fiber.StatusBadGateway, "cloud restore failed")
		}
		config.GetLogger().WithField("object", name).Info("restoring cloud backup")
		return runImport(c, cfg, sync, vendorID, data)
	}
}
