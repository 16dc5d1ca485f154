package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	logicv1 "github.com/duynhne/rango/internal/logic/v1"
)

// multipartMemory is how much of a multipart body is kept in memory
// before spilling file parts to disk.
const multipartMemory = 8 << 20

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var registerOnce sync.Once

// RegisterValidators adds the form rules used by the domain forms
// ("notblank", "username") to gin's validator. Safe to call repeatedly.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		if e := v.RegisterValidation("notblank", validators.NotBlank); e != nil {
			err = fmt.Errorf("register notblank: %w", e)
			return
		}
		if e := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		}); e != nil {
			err = fmt.Errorf("register username: %w", e)
		}
	})
	return err
}

// normalizeURLField prepends a scheme to a scheme-less URL form value
// before binding, so "www.example.com" validates as a URL.
func normalizeURLField(c *gin.Context, field string) {
	req := c.Request
	if err := req.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return
	}
	raw := req.PostForm.Get(field)
	if strings.TrimSpace(raw) == "" {
		return
	}
	normalized := logicv1.NormalizeURL(raw)
	req.PostForm.Set(field, normalized)
	req.Form.Set(field, normalized)
}

// readUpload opens the named multipart file. It returns (nil, nil, nil)
// when no file was submitted; the returned closer must be called otherwise.
func readUpload(c *gin.Context, field string) (*logicv1.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s upload: %w", field, err)
	}
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s upload: %w", field, err)
	}
	return &logicv1.Upload{Filename: fh.Filename, Size: fh.Size, File: f}, f, nil
}
