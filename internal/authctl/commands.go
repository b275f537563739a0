package authctl

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

// parse runs a command's flag set over args. Server flags (-d, -c, ...) are
// consumed by the config loader, so only names declared on fs are kept.
func parse(fs *flag.FlagSet, args []string) error {
	return fs.Parse(flagx.FilterArgs(args, flagx.Names(fs)))
}

func (a *App) keygen(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", a.config.PrivateKeyPath, "private key PEM path; the public key goes to <path>.pub")
	bits := fs.Int("bits", keys.MinRSABits, "RSA modulus size")
	if err := parse(fs, args); err != nil {
		return err
	}

	priv, err := keys.Generate(*bits)
	if err != nil {
		return err
	}
	privPEM, err := keys.EncodePrivateKeyPEM(priv)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(privPEM)
	pubPEM, err := keys.EncodePublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return err
	}

	if _, err := filex.EnsureParentDir(*out); err != nil {
		return err
	}
	// O_EXCL: never overwrite a key that may already be in use.
	f, err := os.OpenFile(*out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(privPEM); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(*out+".pub", pubPEM, 0o644); err != nil {
		return err
	}

	set, err := keys.PublicKeySet(&priv.PublicKey)
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen)
	green.Fprintf(a.out, "Wrote %s (%d bits)\n", *out, *bits)
	fmt.Fprintf(a.out, "kid: %s\n", set.Keys[0].KeyID)
	return nil
}

func (a *App) jwks(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("jwks", flag.ContinueOnError)
	path := fs.String("key", a.config.PrivateKeyPath, "private or public key PEM path")
	if err := parse(fs, args); err != nil {
		return err
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(raw)

	pub, err := publicKeyFromPEM(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", *path, err)
	}
	set, err := keys.PublicKeySet(pub)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func publicKeyFromPEM(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if strings.Contains(block.Type, "PRIVATE") {
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	}
	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	return jwt.ParseRSAPublicKeyFromPEM(raw)
}

func (a *App) secret(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("secret", flag.ContinueOnError)
	n := fs.Int("bytes", keys.MinRefreshSecretSz, "random bytes before hex encoding")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *n < keys.MinRefreshSecretSz/2 {
		return fmt.Errorf("need at least %d bytes", keys.MinRefreshSecretSz/2)
	}

	s, err := common.MakeRandHexString(*n)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s)
	return nil
}

func (a *App) migrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}

	db, err := a.openDB(ctx, a.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := a.manager().RunMigrations(ctx, db); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	role := fs.String("role", string(models.RoleAdmin), "admin | manager | customer")
	if err := parse(fs, args); err != nil {
		return err
	}

	r := models.Role(*role)
	if !r.Valid() {
		return fmt.Errorf("unknown role %q: %w", *role, common.ErrValidation)
	}
	if *first == "" {
		*first = string(r)
	}
	if *last == "" {
		*last = "account"
	}

	password, err := a.promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	in := services.RegisterInput{FirstName: *first, LastName: *last, Email: *email, Password: string(password)}
	if err := in.Validate(); err != nil {
		return err
	}

	hasher, err := credentials.NewVerifier(a.config.BcryptCost)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	db, err := a.openDB(ctx, a.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := a.manager().Users(db).Create(ctx, &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         r,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return fmt.Errorf("%s: %w", in.Email, err)
		}
		return err
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	green.Fprint(a.out, "Created ")
	cyan.Fprintf(a.out, "%s", u.Role)
	fmt.Fprintf(a.out, " %s (id %s)\n", u.Email, u.ID)
	return nil
}

func (a *App) promptPassword() ([]byte, error) {
	fmt.Fprint(a.out, "Enter password: ")
	pw, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(a.out, "Repeat password: ")
	again, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if string(pw) != string(again) {
		common.WipeByteArray(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}
