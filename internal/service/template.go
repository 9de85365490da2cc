// internal/service/template.go
package service

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/staystra/outreach-backend/internal/model"
)

const outreachSubject = `Investment Opportunity: {property_address}`

const outreachHTML = `<!DOCTYPE html>
<html>
<head>
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { color: #2c3e50; margin-bottom: 20px; }
		.revenue { font-size: 24px; color: #27ae60; font-weight: bold; }
		.cta-button {
			display: inline-block;
			padding: 15px 30px;
			background-color: #3498db;
			color: white;
			text-decoration: none;
			border-radius: 5px;
			margin: 20px 0;
			font-size: 16px;
		}
		.benefits {
			background-color: #f8f9fa;
			padding: 20px;
			border-radius: 8px;
			margin: 20px 0;
		}
		.benefits h3 { color: #2c3e50; margin-top: 0; }
		.footer { font-size: 12px; color: #666; margin-top: 30px; }
	</style>
</head>
<body>
	<div class="container">
		<h2 class="header">Hi {agent_name},</h2>

		<p>We analyzed hundreds of properties today, and your listing at <strong>{property_address}</strong>
		could make for a great short-term rental.</p>

		<p>We think it can earn around <span class="revenue" style="display: inline;">{revenue}</span> in gross rent annually.</p>

		<p>If you think a buyer would be interested in that, please check out the link below to our analysis,
		where you can print out a PDF to share with your buyers.</p>

		<div class="benefits">
			<h3>What You Can Do With This Analysis:</h3>
			<ul>
				<li><strong>Print &amp; Share</strong> - Use it in your marketing materials</li>
				<li><strong>Show Buyers</strong> - Demonstrate the investment potential</li>
				<li><strong>Stand Out</strong> - Differentiate your listing with data-driven insights</li>
				<li><strong>Close Faster</strong> - Help investors make confident decisions</li>
			</ul>
		</div>

		<center>
			<a href="{tracked_url}" class="cta-button">View Full Analysis &amp; Print Report</a>
		</center>

		<p>The full report includes detailed revenue projections, occupancy rates, seasonal trends,
		and comparison to similar properties in the area.</p>

		<p>Best regards,<br>
		The StaySTRA Team</p>

		<div class="footer">
			<p>This analysis is based on comprehensive market data and comparable properties.
			StaySTRA is the trusted source for short-term rental investment analysis.</p>
			{test_notice}
			<img src="{base_url}/api/tracking/open/{tracking_token}" width="1" height="1" style="display:none;" />
		</div>
	</div>
</body>
</html>`

const outreachText = `Hi {agent_name},

We analyzed hundreds of properties today, and your listing at {property_address} could make for a great short-term rental.

We think it can earn around {revenue} in gross rent annually.

If you think a buyer would be interested in that, please check out the link below to our analysis, where you can print out a PDF to share with your buyers.

What You Can Do With This Analysis:
- Print & Share - Use it in your marketing materials
- Show Buyers - Demonstrate the investment potential
- Stand Out - Differentiate your listing with data-driven insights
- Close Faster - Help investors make confident decisions

View the full analysis and print your report: {tracked_url}

The full report includes detailed revenue projections, occupancy rates, seasonal trends, and comparison to similar properties in the area.

Best regards,
The StaySTRA Team
{test_notice}`

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a dollar figure with locale grouping and no cents, or a
// placeholder when the amount is unknown.
func FormatUSD(amount float64) string {
	if amount == 0 {
		return "$XX,XXX"
	}
	return usd.Sprintf("$%.0f", amount)
}

// TrackedShareURL appends the utm attribution parameters and the tracking
// token to a campaign's share URL.
func TrackedShareURL(shareURL, token string) string {
	u, err := url.Parse(shareURL)
	if err != nil {
		return shareURL
	}
	q := u.Query()
	q.Set("utm_source", "str_outreach")
	q.Set("utm_medium", "email")
	q.Set("utm_campaign", "top_10_percent")
	q.Set("utm_content", token)
	q.Set("tid", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// RenderTemplate substitutes {key} placeholders in a template.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderOutreachEmail binds a campaign to the fixed outreach template and
// returns the subject, HTML body, and plain-text body.
func RenderOutreachEmail(c *model.Campaign, baseURL string, testMode bool) (subject, html, text string) {
	agentFirstName := "there"
	if c.AgentName != "" {
		agentFirstName, _ = SplitName(c.AgentName)
	}

	htmlNotice := ""
	textNotice := ""
	if testMode {
		htmlNotice = `<p style="color: red;"><strong>TEST MODE - Original recipient: ` + c.AgentEmail + `</strong></p>`
		textNotice = "\nTEST MODE - Original recipient: " + c.AgentEmail
	}

	data := map[string]string{
		"agent_name":       agentFirstName,
		"property_address": c.PropertyAddress,
		"revenue":          FormatUSD(c.EstimatedAnnualRevenue),
		"tracked_url":      TrackedShareURL(c.ShareURL, c.TrackingToken),
		"tracking_token":   c.TrackingToken,
		"base_url":         strings.TrimRight(baseURL, "/"),
	}

	subject = RenderTemplate(outreachSubject, data)
	data["test_notice"] = htmlNotice
	html = RenderTemplate(outreachHTML, data)
	data["test_notice"] = textNotice
	text = RenderTemplate(outreachText, data)
	return subject, html, text
}
