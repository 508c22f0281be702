package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/skyagarwal/mangwale-flow/model"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
var otpPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

var _ Executor = new(authExecutor)

// authExecutor handles phone/OTP validation. Format checks are local; OTP
// issue and verification go through the backend.
type authExecutor struct {
	backend *BackendClient
}

func NewAuthExecutor(backend *BackendClient) *authExecutor {
	return &authExecutor{backend: backend}
}

func (e *authExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	action := getString(config, "action")
	switch action {
	case "validate_phone":
		phone := normalizePhone(getString(config, "phone"))
		if !phonePattern.MatchString(phone) {
			return &Result{Event: "invalid"}, nil
		}
		return &Result{Output: phone, Event: "valid"}, nil
	case "send_otp":
		resp, err := e.backend.Call(ctx, "auth.send_otp", map[string]any{
			"phone": getString(config, "phone"),
		})
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return &Result{Event: model.EVENT_ERROR}, nil
		}
		return &Result{Output: resp.Data, Event: model.EVENT_SUCCESS}, nil
	case "verify_otp":
		otp := strings.TrimSpace(getString(config, "otp"))
		if !otpPattern.MatchString(otp) {
			return &Result{Event: "invalid"}, nil
		}
		resp, err := e.backend.Call(ctx, "auth.verify_otp", map[string]any{
			"phone": getString(config, "phone"),
			"otp":   otp,
		})
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return &Result{Event: "invalid"}, nil
		}
		return &Result{Output: resp.Data, Event: "valid"}, nil
	}
	return nil, fmt.Errorf("unknown auth action %s", action)
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
