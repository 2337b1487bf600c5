package hive

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive/hiveserver"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
)

const defaultScheme = "https"

// Endpoint is the HTTP(S) location of a HiveServer2 thrift-over-HTTP
// service, with the headers every request carries.
type Endpoint struct {
	Scheme   string
	Host     string
	Port     int // zero when not configured
	Path     string
	Username string
	Password string
	Header   http.Header
}

// URI renders scheme://host[:port][/path].
func (e Endpoint) URI() string {
	var port string
	if e.Port != 0 {
		port = ":" + strconv.Itoa(e.Port)
	}
	return fmt.Sprintf("%s://%s%s%s", e.Scheme, e.Host, port, e.Path)
}

// HTTPEndpoint builds the endpoint from http_scheme (default https), host,
// port and http_path. A path without a leading slash gets one. When
// username or http_password is set, requests carry
// Authorization: Basic base64(username:password).
func HTTPEndpoint(settings config.Settings) (Endpoint, error) {
	ep := Endpoint{
		Scheme:   strings.ToLower(settings.String("http_scheme", defaultScheme)),
		Host:     settings.String("host", ""),
		Path:     settings.String("http_path", ""),
		Username: settings.String("username", ""),
		Password: settings.String("http_password", ""),
		Header:   http.Header{},
	}
	if ep.Host == "" {
		return Endpoint{}, errs.New(errs.ErrKindConnectionFailed, "hive host is not configured")
	}
	if ep.Scheme != "http" && ep.Scheme != "https" {
		return Endpoint{}, errs.New(errs.ErrKindConnectionFailed,
			fmt.Sprintf("unsupported http_scheme %q", ep.Scheme))
	}

	port, err := settings.Int("port", 0)
	if err != nil {
		return Endpoint{}, errs.Wrap(errs.ErrKindConnectionFailed, "invalid hive port", err)
	}
	ep.Port = port

	if ep.Path != "" && ep.Path[0] != '/' {
		ep.Path = "/" + ep.Path
	}

	if ep.Username != "" || ep.Password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(ep.Username + ":" + ep.Password))
		ep.Header.Set("Authorization", "Basic "+auth)
	}
	return ep, nil
}

// ConnectHTTP is the Hive-over-HTTP Factory. The session runs over a
// thrift HTTP transport posting to HTTPEndpoint(settings).URI(); the
// endpoint headers, and nothing else, carry the credentials.
func ConnectHTTP(ctx context.Context, settings config.Settings) (database.Session, error) {
	ep, err := HTTPEndpoint(settings)
	if err != nil {
		return nil, err
	}

	var tlsConf *tls.Config
	if ep.Scheme == "https" {
		tlsConf = &tls.Config{ServerName: ep.Host, MinVersion: tls.VersionTLS12}
	}

	conn, err := openHTTP(ctx, ep, settings.String("database", defaultDatabase), tlsConf)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed,
			fmt.Sprintf("could not connect to hive at %s", ep.URI()), err)
	}
	return &session{conn: conn}, nil
}

// openHTTP opens a HiveServer2 session over HTTP(S). The database is
// selected through the session's use:database setting.
func openHTTP(ctx context.Context, ep Endpoint, db string, tlsConf *tls.Config) (*hs2Conn, error) {
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConf}}
	trans, err := thrift.NewTHttpClientWithOptions(ep.URI(), thrift.THttpClientOptions{Client: client})
	if err != nil {
		return nil, err
	}
	if hc, ok := trans.(*thrift.THttpClient); ok {
		for key, values := range ep.Header {
			for _, v := range values {
				hc.SetHeader(key, v)
			}
		}
	}

	c := &hs2Conn{
		client: hiveserver.NewTCLIServiceClientFactory(trans, thrift.NewTBinaryProtocolFactoryConf(nil)),
		trans:  trans,
	}

	req := hiveserver.NewTOpenSessionReq()
	req.ClientProtocol = hiveserver.TProtocolVersion_HIVE_CLI_SERVICE_PROTOCOL_V6
	req.Configuration = map[string]string{"use:database": db}
	if ep.Username != "" {
		req.Username = &ep.Username
	}
	if ep.Password != "" {
		req.Password = &ep.Password
	}

	resp, err := c.client.OpenSession(ctx, req)
	if err != nil {
		_ = trans.Close()
		return nil, err
	}
	if !succeeded(resp.GetStatus()) {
		_ = trans.Close()
		return nil, &statusError{op: "opening session", status: resp.GetStatus()}
	}
	c.session = resp.GetSessionHandle()
	return c, nil
}
