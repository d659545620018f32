package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorMessage() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "user not found"}
		s.Equal("user not found", err.Error())
	})

	s.Run("falls back to code", func() {
		err := &Error{Code: CodeConflict}
		s.Equal("conflict", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.True(errors.Is(New(CodeForbidden, "a"), New(CodeForbidden, "b")))
	s.False(errors.Is(New(CodeForbidden, "a"), New(CodeUnauthorized, "a")))
	s.False(errors.Is(New(CodeForbidden, "a"), errors.New("forbidden")))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original code and details", func() {
		original := WithDetails(CodeConflict, "email already registered", map[string]string{"email": "already exists"})
		wrapped := Wrap(original, CodeInternal, "signup failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeConflict, domainErr.Code)
		s.Equal("signup failed", domainErr.Message)
		s.Equal("already exists", domainErr.Details["email"])
	})

	s.Run("uses provided code for plain errors", func() {
		wrapped := Wrap(errors.New("connection reset"), CodeInternal, "store failure")
		s.True(HasCode(wrapped, CodeInternal))
		s.EqualError(errors.Unwrap(wrapped), "connection reset")
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeNotFound, CodeOf(fmt.Errorf("lookup: %w", New(CodeNotFound, "missing"))))
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	s.False(HasCode(nil, CodeNotFound))
}
