// Command create_admin bootstraps an administrator account, since the API has
// no self-registration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yungbote/lms-backend/internal/app"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/services"
)

func main() {
	var name, email, password, role string
	flag.StringVar(&name, "name", "Administrator", "display name")
	flag.StringVar(&email, "email", "", "login email (required)")
	flag.StringVar(&password, "password", "", "initial password, at least 6 characters (required)")
	flag.StringVar(&role, "role", string(types.RoleAdmin), "role to create: admin or teacher")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(email) == "" || password == "" {
		flag.Usage()
		os.Exit(2)
	}
	r, ok := types.ParseRole(role)
	if !ok || r == types.RoleStudent {
		fmt.Printf("unsupported role %q\n", role)
		os.Exit(2)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	u, err := application.Services.User.Create(context.Background(), services.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     r,
	})
	if err != nil {
		fmt.Printf("create user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created %s %s (%s)\n", u.Role, u.Email, u.ID)
}
