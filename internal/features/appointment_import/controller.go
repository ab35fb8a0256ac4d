package appointment_import

import (
	"encoding/json"
	"fmt"
	"io"

	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/importmap"

	"github.com/gofiber/fiber/v2"
)

type ImportController struct {
	Service ImportService
	Config  *config.Config
}

func NewImportController(service ImportService, cfg *config.Config) *ImportController {
	return &ImportController{Service: service, Config: cfg}
}

func (ctrl *ImportController) upload(c *fiber.Ctx) (Upload, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Upload{}, apperrors.Validation("file is required")
	}
	if err := CheckFileName(fileHeader.Filename); err != nil {
		return Upload{}, err
	}
	if limit := ctrl.Config.MaxImportBytes(); limit > 0 && fileHeader.Size > limit {
		return Upload{}, apperrors.New("FILE_TOO_LARGE", fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d MB limit", ctrl.Config.MaxImportSizeMB))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return Upload{Name: fileHeader.Filename, Data: data}, nil
}

// mapping reads the optional JSON column mapping form value.
func mapping(c *fiber.Ctx) (importmap.ColumnMapping, error) {
	raw := c.FormValue("mapping")
	if raw == "" {
		return nil, nil
	}
	var m importmap.ColumnMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, apperrors.Validation("invalid mapping JSON")
	}
	if m == nil {
		m = importmap.ColumnMapping{}
	}
	return m, nil
}

// PreviewImport godoc
// @Summary      Preview appointment import
// @Description  Parses the file and suggests a column mapping
// @Tags         appointment-import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV or Excel file"
// @Success      200  {object}  PreviewResponse
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/appointments/import/preview [post]
func (ctrl *ImportController) PreviewImport(c *fiber.Ctx) error {
	up, err := ctrl.upload(c)
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.Preview(c.UserContext(), scope, up)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// ValidateImport godoc
// @Summary      Validate appointment import
// @Tags         appointment-import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file    true   "CSV or Excel file"
// @Param        mapping  formData  string  false  "Column mapping JSON, header to field id"
// @Success      200  {object}  ValidateResponse
// @Router       /api/appointments/import/validate [post]
func (ctrl *ImportController) ValidateImport(c *fiber.Ctx) error {
	up, err := ctrl.upload(c)
	if err != nil {
		return api.Fail(c, err)
	}
	m, err := mapping(c)
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.Validate(c.UserContext(), scope, up, m)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// ExecuteImport godoc
// @Summary      Import appointments
// @Description  Books every valid row. Rows that fail are reported and skipped.
// @Tags         appointment-import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file    true   "CSV or Excel file"
// @Param        mapping  formData  string  false  "Column mapping JSON, header to field id"
// @Success      200  {object}  ImportOutcome
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/appointments/import [post]
func (ctrl *ImportController) ExecuteImport(c *fiber.Ctx) error {
	up, err := ctrl.upload(c)
	if err != nil {
		return api.Fail(c, err)
	}
	m, err := mapping(c)
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.Execute(c.UserContext(), scope, up, m)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// ListImportJobs godoc
// @Summary      List import jobs
// @Tags         appointment-import
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/appointments/import/jobs [get]
func (ctrl *ImportController) ListImportJobs(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.ListJobs(c.UserContext(), scope, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetImportJob godoc
// @Summary      Get import job
// @Tags         appointment-import
// @Produce      json
// @Param        id   path  string  true  "Job ID"
// @Success      200  {object}  ImportJob
// @Router       /api/appointments/import/jobs/{id} [get]
func (ctrl *ImportController) GetImportJob(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	job, err := ctrl.Service.GetJob(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(job)
}

// ListFields godoc
// @Summary      Importable appointment fields
// @Tags         appointment-import
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/appointments/import/fields [get]
func (ctrl *ImportController) ListFields(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"required": importmap.RequiredFields(),
		"optional": importmap.OptionalFields(),
	})
}
