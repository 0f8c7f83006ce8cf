package auth

import (
	"crypto/subtle"
	"errors"
)

// ErrInvalidCredentials - неверное имя пользователя или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminAuthenticator проверяет учётные данные единственного администратора
// таблицы лидеров. PasswordHash - bcrypt хеш; пустой хеш отключает вход.
type AdminAuthenticator struct {
	Username     string
	PasswordHash string
}

// Enabled сообщает, настроен ли администратор.
func (a AdminAuthenticator) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// Login проверяет пароль и выдаёт JWT с правами администратора.
func (a AdminAuthenticator) Login(username, password string) (string, error) {
	if !a.Enabled() {
		return "", ErrInvalidCredentials
	}
	// bcrypt выполняется всегда, чтобы время ответа не выдавало имя
	passOK := CheckPassword(a.PasswordHash, password)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	if !passOK || !userOK {
		return "", ErrInvalidCredentials
	}
	return GenerateJWT(a.Username, true)
}
