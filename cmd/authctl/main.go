package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalrelay/authgate/client"
	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/logger"
)

const usage = `usage: authctl <command> [flags]

commands:
  login   -email -password
  signup  -email -password -name [-plan]
  whoami              (requires SESSION_TOKEN)
  update  [-name] [-plan]  (requires SESSION_TOKEN)
  logout              (requires SESSION_TOKEN)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load(".env")

	zapLogger, err := logger.New(logger.Config{
		Level:    envOr("LOG_LEVEL", "warn"),
		Encoding: "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	session := client.New(client.Config{
		AuthgateURL:    envOr("AUTHGATE_URL", "http://localhost:8080"),
		PrimaryAuthURL: os.Getenv("PRIMARY_AUTH_URL"),
		Origin:         os.Getenv("APP_ORIGIN"),
		ProductDomain:  envOr("PRODUCT_DOMAIN", "signalrelay.io"),
		DevAuthURL:     envOr("DEV_AUTH_URL", "http://localhost:8000"),
		IdentityURL:    envOr("IDP_URL", "http://localhost:9999"),
		IdentityKey:    os.Getenv("IDP_ANON_KEY"),
		StoredToken:    os.Getenv("SESSION_TOKEN"),
		Timeout:        10 * time.Second,
	}, zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(os.Args[2:])
		profile, err := session.Login(ctx, *email, *password)
		exitOn(err)
		fmt.Printf("token: %s\n", session.Token())
		printJSON(profile)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		name := fs.String("name", "", "display name")
		plan := fs.String("plan", "", "subscription plan")
		fs.Parse(os.Args[2:])
		profile, err := session.Signup(ctx, *email, *password, *name, domain.Plan(*plan))
		exitOn(err)
		fmt.Printf("token: %s\n", session.Token())
		printJSON(profile)

	case "whoami":
		session.Bootstrap(ctx)
		if session.User() == nil {
			fmt.Fprintln(os.Stderr, "not authenticated")
			os.Exit(1)
		}
		printJSON(session.User())

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		name := fs.String("name", "", "new display name")
		plan := fs.String("plan", "", "new subscription plan")
		fs.Parse(os.Args[2:])
		session.Bootstrap(ctx)
		if session.User() == nil {
			fmt.Fprintln(os.Stderr, "not authenticated")
			os.Exit(1)
		}
		var patch domain.Patch
		if *name != "" {
			patch.Name = name
		}
		if *plan != "" {
			p := domain.Plan(*plan)
			patch.Plan = &p
		}
		profile, err := session.UpdateProfile(ctx, patch)
		exitOn(err)
		printJSON(profile)

	case "logout":
		session.Bootstrap(ctx)
		session.Logout(ctx)
		fmt.Println("logged out")

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
