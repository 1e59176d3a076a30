package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"fan-vote/internal/idp"
)

func TestOTPIssueAndVerify(t *testing.T) {
	provider := &idp.MockProvider{OTPResult: idp.OTPOk}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)

	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(provider.OTPSends) != 1 || provider.OTPSends[0] != "08022223333" {
		t.Fatalf("expected one send with normalized phone, got %v", provider.OTPSends)
	}
	if err := v.Verify(context.Background(), "flow-1", "080-2222-3333", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestOTPVerifyBeforeIssue(t *testing.T) {
	v := NewOTPVerifier(zap.NewNop(), &idp.MockProvider{}, nil, time.Minute)
	if err := v.Verify(context.Background(), "flow-1", "080-2222-3333", "123456"); !errors.Is(err, ErrOTPNotRequested) {
		t.Fatalf("expected ErrOTPNotRequested, got %v", err)
	}
}

func TestOTPVerifyWrongPhone(t *testing.T) {
	provider := &idp.MockProvider{OTPResult: idp.OTPOk}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Verify(context.Background(), "flow-1", "090-9999-8888", "123456"); !errors.Is(err, ErrOTPNotRequested) {
		t.Fatalf("expected ErrOTPNotRequested for mismatched phone, got %v", err)
	}
}

func TestOTPSecondIssueWhileOutstanding(t *testing.T) {
	provider := &idp.MockProvider{}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); !errors.Is(err, ErrOTPOutstanding) {
		t.Fatalf("expected ErrOTPOutstanding, got %v", err)
	}
	if len(provider.OTPSends) != 1 {
		t.Fatalf("second issue must not send, got %d sends", len(provider.OTPSends))
	}
}

func TestOTPExpiredIsNotInvalid(t *testing.T) {
	provider := &idp.MockProvider{OTPResult: idp.OTPExpired}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	err := v.Verify(context.Background(), "flow-1", "080-2222-3333", "000000")
	if !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
	if errors.Is(err, ErrOTPInvalid) {
		t.Fatal("expired must not collapse into invalid")
	}
}

func TestOTPInvalidCode(t *testing.T) {
	provider := &idp.MockProvider{OTPResult: idp.OTPInvalid}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Verify(context.Background(), "flow-1", "080-2222-3333", "000000"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
}

func TestOTPSendFailureClearsFlow(t *testing.T) {
	provider := &idp.MockProvider{OTPSendErr: errors.New("sms gateway down")}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err == nil {
		t.Fatal("expected the send failure to surface")
	}
	// El flujo fallido no debe bloquear un reintento.
	provider.OTPSendErr = nil
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("reissue after failure: %v", err)
	}
}

func TestOTPRateLimited(t *testing.T) {
	provider := &idp.MockProvider{}
	limiter := NewOTPRateLimiter(time.Minute, 2)
	v := NewOTPVerifier(zap.NewNop(), provider, limiter, time.Minute)

	for i, flow := range []string{"flow-1", "flow-2"} {
		if err := v.Issue(context.Background(), flow, "080-2222-3333"); err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
	}
	if err := v.Issue(context.Background(), "flow-3", "080-2222-3333"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestOTPConsumeExactlyOnce(t *testing.T) {
	provider := &idp.MockProvider{OTPResult: idp.OTPOk}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Verify(context.Background(), "flow-1", "080-2222-3333", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Consume("flow-1", "080-2222-3333") {
		t.Fatal("first consume must succeed")
	}
	if v.Consume("flow-1", "080-2222-3333") {
		t.Fatal("second consume must fail")
	}
}

func TestOTPConsumeWithoutVerify(t *testing.T) {
	provider := &idp.MockProvider{}
	v := NewOTPVerifier(zap.NewNop(), provider, nil, time.Minute)
	if err := v.Issue(context.Background(), "flow-1", "080-2222-3333"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if v.Consume("flow-1", "080-2222-3333") {
		t.Fatal("consume must fail before verification")
	}
}
