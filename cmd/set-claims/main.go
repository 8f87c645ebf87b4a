package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"firelog/backend/internal/config"
	"firelog/backend/internal/firebase"
)

// set-claims grants or revokes the admin claim that unlocks the /v1/global
// routes.
func main() {
	uid := flag.String("uid", "", "target firebase uid")
	revoke := flag.Bool("revoke", false, "remove the admin claim instead of granting it")
	flag.Parse()
	if *uid == "" {
		log.Fatal("uid is required: -uid=xxxxx")
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, config.Load())
	if err != nil {
		log.Fatalf("firebase.NewApp: %v", err)
	}
	authClient, err := firebase.NewAuthClient(ctx, app)
	if err != nil {
		log.Fatalf("app.Auth: %v", err)
	}

	u, err := authClient.GetUser(ctx, *uid)
	if err != nil {
		log.Fatalf("GetUser: %v", err)
	}
	claims := map[string]interface{}{}
	for k, v := range u.CustomClaims {
		claims[k] = v
	}
	if *revoke {
		delete(claims, "admin")
	} else {
		claims["admin"] = true
	}

	if err := authClient.SetCustomUserClaims(ctx, *uid, claims); err != nil {
		log.Fatalf("SetCustomUserClaims: %v", err)
	}

	if *revoke {
		fmt.Println("ok: admin claim removed for", *uid)
		return
	}
	fmt.Println("ok: admin claim set for", *uid)
}
