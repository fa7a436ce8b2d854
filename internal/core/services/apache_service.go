package services

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// vhostTemplate must stay byte-identical to what existing Apache setups
// expect, including the leading newline and the literal ${APACHE_LOG_DIR}.
const vhostTemplate = `
<VirtualHost *:80>
    ServerName {{.ServerName}}
    DocumentRoot {{.DocumentRoot}}

    <Directory {{.DocumentRoot}}>
        AllowOverride All
        Require all granted
    </Directory>

    ErrorLog ${APACHE_LOG_DIR}/{{.Name}}-error.log
    CustomLog ${APACHE_LOG_DIR}/{{.Name}}-access.log combined

    <FilesMatch \.php$>
        SetHandler "proxy:unix:{{.FPMSocketDir}}/php{{.PHPVersion}}-fpm.sock|fcgi://localhost/"
    </FilesMatch>
</VirtualHost>
`

var vhostTmpl = template.Must(template.New("vhost").Parse(vhostTemplate))

// ApacheService builds VirtualHost definitions for provisioned projects.
type ApacheService struct {
	htmlRoot     string
	tld          string
	fpmSocketDir string
}

func NewApacheService(htmlRoot, tld, fpmSocketDir string) *ApacheService {
	return &ApacheService{htmlRoot: htmlRoot, tld: tld, fpmSocketDir: fpmSocketDir}
}

// VirtualHostFor derives the vhost parameters for a project.
func (s *ApacheService) VirtualHostFor(name, phpVersion string) domain.VirtualHost {
	return domain.VirtualHost{
		Name:         name,
		ServerName:   name + "." + s.tld,
		DocumentRoot: s.htmlRoot + "/" + name,
		PHPVersion:   phpVersion,
		FPMSocketDir: s.fpmSocketDir,
	}
}

// RenderVirtualHost produces the Apache site file contents.
func RenderVirtualHost(vh domain.VirtualHost) (string, error) {
	var buf bytes.Buffer
	if err := vhostTmpl.Execute(&buf, vh); err != nil {
		return "", fmt.Errorf("render vhost for %s: %w", vh.Name, err)
	}
	return buf.String(), nil
}
