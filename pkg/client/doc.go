// Package client is the Go SDK for the accounts service.
//
// # Registering a user
//
//	c, err := client.New("http://localhost:8000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	u, err := c.Register(ctx, client.RegisterRequest{
//	    Email:           "ada@example.com",
//	    Password:        "Str0ng!Pass",
//	    PasswordConfirm: "Str0ng!Pass",
//	    FirstName:       "Ada",
//	    LastName:        "Lovelace",
//	})
//
// # Handling rejections
//
// Register distinguishes caller mistakes from server failures:
//
//	var verr *client.ValidationError
//	var cerr *client.ConflictError
//	switch {
//	case errors.As(err, &verr):
//	    // verr.Fields["password"] == "Password must contain at least one digit"
//	case errors.As(err, &cerr):
//	    // cerr.Field == "email"
//	}
//
// # Administration
//
// DeleteUser requires the server's admin secret:
//
//	c, _ := client.New(url, client.WithAdminSecret(os.Getenv("ADMIN_SECRET")))
//	err := c.DeleteUser(ctx, u.ID)
package client
