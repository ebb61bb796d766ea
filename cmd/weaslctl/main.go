package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Weasl-Admin-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// call ejecuta el request y falla si el status no es 2xx.
func (c *client) call(name, method, path string, body []byte) error {
	status, out, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s failed: status=%d body=%s", name, status, string(out))
	}
	c.print(status, out)
	return nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("WEASL_URL", "http://localhost:8080")
		apiKey  = envOr("WEASL_ADMIN_KEY", "")
		out     = envOr("WEASL_OUT", "text")
	)
	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:   "weaslctl",
		Short: "CLI de operador para weasl (superficie /admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("missing admin key (flag --admin-key or env WEASL_ADMIN_KEY)")
			}
			cl.BaseURL, cl.APIKey, cl.OutFormat = baseURL, apiKey, out
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "Base URL del servicio (env WEASL_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-key", apiKey, "Admin key (env WEASL_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Chequea /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do(http.MethodGet, "/healthz", nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("ping failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un tenant y muestra sus credenciales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("create", http.MethodPost, "/admin/tenants", nil)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <client_id>",
		Short: "Muestra un tenant y sus propiedades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("get", http.MethodGet, "/admin/tenants/"+url.PathEscape(args[0]), nil)
		},
	}

	var propType string
	setPropCmd := &cobra.Command{
		Use:   "set-property <client_id> <namespace> <name> <value>",
		Short: "Setea una propiedad (theme|settings|gates)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := json.Marshal(map[string]any{"value": args[3], "type": propType})
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/admin/tenants/%s/properties/%s/%s",
				url.PathEscape(args[0]), url.PathEscape(args[1]), url.PathEscape(args[2]))
			return cl.call("set-property", http.MethodPut, path, b)
		},
	}
	setPropCmd.Flags().StringVar(&propType, "type", "STRING", "Tipo del valor: STRING|NUMBER|BOOLEAN|JSON")

	tenantCmd := &cobra.Command{Use: "tenant", Short: "Operaciones sobre tenants"}
	tenantCmd.AddCommand(createCmd, getCmd, setPropCmd)
	root.AddCommand(pingCmd, tenantCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
