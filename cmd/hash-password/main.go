package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/service"
	"golang.org/x/term"
)

// hash-password prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func main() {
	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	fmt.Println("=== Admin Password Hash ===")

	password, err := readPassword("Enter Password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading password:", err)
		os.Exit(1)
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	if term.IsTerminal(int(syscall.Stdin)) {
		confirm, err := readPassword("Confirm Password: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading password:", err)
			os.Exit(1)
		}
		if confirm != password {
			fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
			os.Exit(1)
		}
	}

	hash, err := authService.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error hashing password:", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Add this to your environment:")
	fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
}

// readPassword reads without echo from a terminal, or a line from piped stdin.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print(prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
