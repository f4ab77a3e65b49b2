package main

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// notFoundPage is the user-facing page rendered when a subdomain matches no
// active tenant. Arabic, right-to-left, and it names the attempted subdomain
// so the visitor can spot a typo.
var notFoundPage = template.Must(template.New("tenant-not-found").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>الشركة غير موجودة</title>
<style>
  body { font-family: 'Segoe UI', Tahoma, sans-serif; background: #f5f6fa; margin: 0;
         display: flex; align-items: center; justify-content: center; min-height: 100vh; }
  .card { background: #fff; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,0.08);
          padding: 48px 40px; max-width: 480px; text-align: center; }
  h1 { color: #2d3436; font-size: 1.6rem; margin-bottom: 12px; }
  p { color: #636e72; line-height: 1.8; }
  .slug { direction: ltr; display: inline-block; background: #f1f2f6; border-radius: 6px;
          padding: 2px 10px; font-family: monospace; color: #d63031; }
  a.home { display: inline-block; margin-top: 24px; background: #0984e3; color: #fff;
           text-decoration: none; padding: 10px 28px; border-radius: 8px; }
</style>
</head>
<body>
  <div class="card">
    <h1>الشركة غير موجودة</h1>
    <p>عذراً، لا توجد شركة مسجلة بالنطاق الفرعي <span class="slug">{{.Subdomain}}</span>.</p>
    <p>تأكد من صحة الرابط أو تواصل مع مدير النظام لديك.</p>
    <a class="home" href="https://{{.BaseDomain}}">العودة إلى الصفحة الرئيسية</a>
  </div>
</body>
</html>`))

// renderTenantNotFound writes the localized 404 page.
func renderTenantNotFound(c *gin.Context, subdomain, baseDomain string) {
	c.Status(http.StatusNotFound)
	c.Header("Content-Type", "text/html; charset=UTF-8")
	if err := notFoundPage.Execute(c.Writer, gin.H{
		"Subdomain":  subdomain,
		"BaseDomain": baseDomain,
	}); err != nil {
		c.String(http.StatusNotFound, "tenant %q not found", subdomain)
	}
}
