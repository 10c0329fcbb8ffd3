package dbpool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// rdsTokenTTL is the lifetime of a generated IAM auth token; RDS rejects
// tokens older than 15 minutes.
const rdsTokenTTL = 15 * time.Minute

// iamPoolTTLCeiling caps cached IAM-mode pools at two thirds of the
// token lifetime, so no pool in the cache outlives the token generation
// it was built with. Each new physical connection re-signs a fresh token
// via the pool config's BeforeConnect hook.
const iamPoolTTLCeiling = rdsTokenTTL * 2 / 3

// emptyPayloadHash is the SHA-256 hash of an empty body, required by
// SigV4 for requests with no payload.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// signRDSAuthToken builds an RDS IAM authentication token: a presigned
// "connect" request URL whose query string doubles as a database
// password. user is the database role name the token authenticates as.
func signRDSAuthToken(ctx context.Context, credsProvider aws.CredentialsProvider, region, host string, port uint16, user string) (string, error) {
	if credsProvider == nil {
		return "", docerr.Dependency("missing aws credentials provider", nil)
	}
	creds, err := credsProvider.Retrieve(ctx)
	if err != nil {
		return "", docerr.Dependency("failed to resolve aws credentials", err)
	}

	endpoint := fmt.Sprintf("%s:%d", host, port)
	rawURL := fmt.Sprintf("https://%s/?Action=connect&DBUser=%s", endpoint, url.QueryEscape(user))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", docerr.Dependency("failed to build rds iam token request", err)
	}

	signer := v4.NewSigner()
	signedURL, _, err := signer.PresignHTTP(ctx, creds, req, emptyPayloadHash, "rds-db", region, time.Now())
	if err != nil {
		return "", docerr.Dependency("failed to sign rds iam token", err)
	}

	// RDS expects the token without the scheme, matching the wire format
	// a standard Postgres password field accepts.
	return strings.TrimPrefix(signedURL, "https://"), nil
}
