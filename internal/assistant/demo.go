package assistant

import (
	"fmt"
	"strings"
)

// demoReply serves canned guidance when no API key is configured. The
// keyword buckets mirror what the hosted assistant covers.
func demoReply(prompt string, uc UserContext) string {
	p := strings.ToLower(prompt)

	switch {
	case strings.Contains(p, "transition") || strings.Contains(p, "switch"):
		return fmt.Sprintf(`For transitioning from %s to a senior role, I recommend:

1. Skill Enhancement: focus on leadership and advanced technical skills
2. Build a Portfolio: showcase your best projects and results
3. Networking: connect with professionals in your target role
4. Certifications: consider relevant industry certifications
5. Mentorship: find a mentor in your desired position

Would you like me to elaborate on any of these points?`, uc.CurrentRole)

	case strings.Contains(p, "skill") || strings.Contains(p, "learn"):
		return fmt.Sprintf(`Based on your %s background, here are key skills to develop:

Technical: advanced programming languages, cloud platforms, data analysis tools.
Soft skills: project management, communication, team leadership.
Industry-specific: machine learning for data roles, DevOps for engineering roles, business intelligence for analyst roles.

Which area interests you most?`, uc.CurrentRole)

	case strings.Contains(p, "salary") || strings.Contains(p, "negotiate"):
		return fmt.Sprintf(`Here's how to approach salary negotiation:

1. Research market rates
2. Document your value: list achievements and contributions
3. Choose the right time: performance reviews or job offers
4. Be confident and professional
5. Consider the total package: benefits, flexibility, growth

For your experience level (%s), focus on demonstrating ROI and impact.`, uc.Experience)

	case strings.Contains(p, "trend") || strings.Contains(p, "future"):
		return fmt.Sprintf(`Current trends relevant to %s:

Hot technologies: AI/ML integration, cloud-native development, automation.
Growth areas: remote collaboration, cross-functional work, security awareness.
Skills in demand: problem-solving, adaptability, continuous learning.

Stay current through industry blogs, conferences, and professional networks.`, uc.CurrentRole)

	case strings.Contains(p, "leadership") || strings.Contains(p, "management"):
		return `To develop leadership skills:

1. Communication: clear, empathetic, inclusive
2. Decision making: data-driven with stakeholder input
3. Team building: foster collaboration and growth
4. Strategic thinking: long-term planning and vision

Lead small initiatives, mentor junior colleagues, and seek feedback regularly.`

	default:
		return fmt.Sprintf(`I'm here to help with your career! I can assist with:

- Career transitions: moving to new roles
- Skill development: what to learn next
- Salary negotiation: getting fair compensation
- Industry trends: staying current
- Leadership: building management skills

Based on your profile as a %s with %s experience, what would you like to explore?`, uc.CurrentRole, uc.Experience)
	}
}
