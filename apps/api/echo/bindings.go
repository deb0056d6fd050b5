package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/bulk"
)

const (
	orderingParam = "ordering"
	formatParam   = "format"
	fileField     = "file"
	maxUploadSize = 10 << 20
	uploadLimit   = "10M"

	errFileTooLarge = "the file is larger than 10 MB"
)

type Ordering struct {
	Orderings []core.Ordering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrderings(val)
	}
}

// upload returns the uploaded file & its format: a multipart "file" field,
// or the raw request body with the format taken from ?format= (CSV by default).
func upload(ctx echo.Context) (io.Reader, string, error) {
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile(fileField)
		if err != nil {
			if err == http.ErrMissingFile {
				return nil, "", core.NewValidationError(nil, core.FieldError{Field: fileField, Error: "this field is required"})
			}
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return nil, "", httpErr
			}
			return nil, "", errors.Wrap(err, "reading form file")
		}
		format, err := bulk.DetectFormat(fh.Filename)
		if err != nil {
			return nil, "", err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", errors.Wrap(err, "opening form file")
		}
		defer f.Close()

		buf, err := readUpload(f)
		if err != nil {
			return nil, "", errors.Wrap(err, "reading form file")
		}
		return buf, format, nil
	}

	format, err := queryFormat(ctx, bulk.FormatCSV)
	if err != nil {
		return nil, "", err
	}
	buf, err := readUpload(ctx.Request().Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading request body")
	}
	return buf, format, nil
}

// readUpload buffers r, rejecting files larger than maxUploadSize.
func readUpload(r io.Reader) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, maxUploadSize+1)); err != nil {
		return nil, err
	}
	if buf.Len() > maxUploadSize {
		return nil, core.NewValidationError(nil, core.FieldError{Field: fileField, Error: errFileTooLarge})
	}
	return &buf, nil
}

// queryFormat reads ?format=, one of csv or xlsx.
func queryFormat(ctx echo.Context, def string) (string, error) {
	format := strings.ToLower(ctx.QueryParam(formatParam))
	switch format {
	case "":
		return def, nil
	case bulk.FormatCSV, bulk.FormatXLSX:
		return format, nil
	}
	return "", bulk.ErrUnknownFormat
}

// attachment sends content as a downloadable file.
func attachment(ctx echo.Context, name, format string, content []byte) error {
	mime := "text/csv; charset=utf-8"
	if format == bulk.FormatXLSX {
		mime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+"."+format+`"`)
	return ctx.Blob(http.StatusOK, mime, content)
}
