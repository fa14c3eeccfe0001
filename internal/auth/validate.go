package auth

import (
	"strings"
	"unicode/utf8"
)

const maxUsernameLength = 32

// Messages holds the user-facing texts for credential validation.
type Messages struct {
	UsernameRequired string
	UsernameTooLong  string
	UsernameNullChar string
	PasswordRequired string
}

var EnglishMessages = Messages{
	UsernameRequired: "username field is required",
	UsernameTooLong:  "username must be at most 32 characters",
	UsernameNullChar: "null characters are not allowed",
	PasswordRequired: "password field is required",
}

var ChineseMessages = Messages{
	UsernameRequired: "用户名字段为必填",
	UsernameTooLong:  "用户名长度不能超过32个字符",
	UsernameNullChar: "不允许包含空字符",
	PasswordRequired: "密码字段为必填",
}

// MessagesFor returns the catalog for locale, falling back to English.
func MessagesFor(locale string) Messages {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "zh", "zh-cn", "zh-hans":
		return ChineseMessages
	default:
		return EnglishMessages
	}
}

// Validate normalizes the credential and returns every field problem at once.
// The returned error is nil or a *ValidationError.
func (m Messages) Validate(c Credential) (Credential, error) {
	c.Username = strings.TrimSpace(c.Username)

	verr := &ValidationError{}
	switch {
	case c.Username == "":
		verr.add("username", m.UsernameRequired)
	case strings.ContainsRune(c.Username, 0):
		verr.add("username", m.UsernameNullChar)
	case utf8.RuneCountInString(c.Username) > maxUsernameLength:
		verr.add("username", m.UsernameTooLong)
	}
	if c.Password == "" {
		verr.add("password", m.PasswordRequired)
	}

	if len(verr.Fields) > 0 {
		return Credential{}, verr
	}
	return c, nil
}
