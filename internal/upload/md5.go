package upload

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
)

// MD5Sum returns the MD5 digest of r as base64 (the Content-MD5 form) and hex.
func MD5Sum(r io.Reader) (string, string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", "", err
	}
	sum := h.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum), hex.EncodeToString(sum), nil
}

// MD5SumFile is MD5Sum over a file.
func MD5SumFile(file string) (string, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	return MD5Sum(f)
}
