package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math/rand"
	"net/http"

	"golang.org/x/crypto/argon2"
)

const SaltLen = 8

type Msg struct {
	Message string `json:"message"`
}

func WriteMsg(w http.ResponseWriter, msg string, code int) {
	WriteJSON(w, Msg{msg}, code)
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func RandStringRunes(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

// HashPass returns the salt followed by the argon2id hash of the password.
func HashPass(plainPassword, salt string) []byte {
	hashedPass := argon2.IDKey([]byte(plainPassword), []byte(salt), 1, 64*1024, 4, 32)
	res := []byte(salt)
	return append(res, hashedPass...)
}

// CheckPass compares a plain password with a hash produced by HashPass.
func CheckPass(plainPassword string, hashed []byte) bool {
	if len(hashed) <= SaltLen {
		return false
	}
	salt := string(hashed[:SaltLen])
	return bytes.Equal(HashPass(plainPassword, salt), hashed)
}

// ParseReqBody decodes a JSON body. An empty body decodes as an empty object.
func ParseReqBody(body io.Reader, ptr interface{}) error {
	err := json.NewDecoder(body).Decode(ptr)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func WriteRespJSON(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, data, http.StatusOK)
}

func WriteJSON(w http.ResponseWriter, data interface{}, code int) {
	resp, err := json.Marshal(data)
	if err != nil {
		log.Println("common: JSON marshaling failed", err)
		resp = []byte(`{"message":"response failed"}`)
		code = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(resp)
	if err != nil {
		log.Println("common: failed writing response", err)
	}
}
