// Command hash_password generates the bcrypt hash for the ADMIN_PASSWORD_HASH
// environment variable used by the serve command.
//
// Usage:
//
//	go run cmd/tools/hash_password/main.go
//
// The password is read from stdin so it never appears in shell history.
// BCRYPT_COST and PASSWORD_PEPPER are honored when set.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kolavi/blog-pipeline/internal/config"
)

func main() {
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to read password: %v\n", err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "ERROR: password must not be empty")
		os.Exit(1)
	}

	hash, err := passwordConfig.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
