package validator

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"ecapp/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

// echo.Validatorとして登録する。フィールド名はjsonタグで返す
type Validator struct {
	v *playground.Validate
}

func New() *Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// 失敗時は400のHTTPError（details.fieldsにフィールド→ルール）
func (x *Validator) Validate(i interface{}) error {
	err := x.v.Struct(i)
	if err == nil {
		return nil
	}

	var ves playground.ValidationErrors
	if !errors.As(err, &ves) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fieldPath(fe)] = rule(fe)
	}
	return usecase.NewHTTPErrorWithDetails(http.StatusBadRequest, "validation failed", map[string]any{"fields": fields})
}

// items[0].quantity のようにする。先頭の構造体名と埋め込み構造体名（大文字始まり）は落とす
func fieldPath(fe playground.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) <= 1 {
		return fe.Field()
	}
	out := make([]string, 0, len(parts)-1)
	for i, p := range parts[1:] {
		if i < len(parts)-2 && p != "" && unicode.IsUpper(rune(p[0])) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

func rule(fe playground.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
