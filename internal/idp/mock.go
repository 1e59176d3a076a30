package idp

import "context"

// MockProvider permite tests sin un proveedor de identidad real.
type MockProvider struct {
	Session      Session
	SessionErr   error
	OAuthURL     string
	OTPSendErr   error
	OTPResult    OTPResult
	OTPVerifyErr error
	SignOutErr   error

	SignOutCalls    int
	GetSessionCalls int
	OTPSends        []string
	OTPVerifies     []string
}

func (m *MockProvider) SignInWithPassword(context.Context, string, string) (Session, error) {
	return m.Session, m.SessionErr
}

func (m *MockProvider) SignUp(context.Context, string, string) (Session, error) {
	return m.Session, m.SessionErr
}

func (m *MockProvider) SignInWithOAuth(context.Context, string, string) (string, error) {
	return m.OAuthURL, nil
}

func (m *MockProvider) GetSession(context.Context, string) (Session, error) {
	m.GetSessionCalls++
	return m.Session, m.SessionErr
}

func (m *MockProvider) RefreshSession(context.Context, string) (Session, error) {
	return m.Session, m.SessionErr
}

func (m *MockProvider) SignOut(context.Context, string) error {
	m.SignOutCalls++
	return m.SignOutErr
}

func (m *MockProvider) SendPhoneOTP(_ context.Context, phone string) error {
	m.OTPSends = append(m.OTPSends, phone)
	return m.OTPSendErr
}

func (m *MockProvider) VerifyPhoneOTP(_ context.Context, phone, _ string) (OTPResult, error) {
	m.OTPVerifies = append(m.OTPVerifies, phone)
	return m.OTPResult, m.OTPVerifyErr
}
