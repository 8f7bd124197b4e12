package authapi

import (
	"net"
	"net/http"
	"strings"

	"careerquest/cmd/identity"
)

func toUserResponse(u identity.User) userResponse {
	skills := u.Profile.Skills
	if skills == nil {
		skills = []string{}
	}
	interests := u.Profile.Interests
	if interests == nil {
		interests = []string{}
	}
	return userResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
		Profile: profileResponse{
			Skills:        skills,
			Interests:     interests,
			Education:     u.Profile.Education,
			QuizCompleted: u.Profile.QuizCompleted,
			QuizResults:   u.Profile.QuizResults,
		},
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toProfile(p *profileRequest) identity.Profile {
	if p == nil {
		return identity.Profile{}
	}
	var out identity.Profile
	if p.Skills != nil {
		out.Skills = *p.Skills
	}
	if p.Interests != nil {
		out.Interests = *p.Interests
	}
	out.Education = trimPtr(p.Education)
	if p.QuizCompleted != nil {
		out.QuizCompleted = *p.QuizCompleted
	}
	out.QuizResults = nullableRaw(p.QuizResults)
	return out
}

func toProfilePatch(p *profileRequest) *identity.ProfilePatch {
	if p == nil {
		return nil
	}
	return &identity.ProfilePatch{
		Skills:        p.Skills,
		Interests:     p.Interests,
		Education:     p.Education,
		QuizCompleted: p.QuizCompleted,
		QuizResults:   nullableRaw(p.QuizResults),
	}
}

// registerRole allows self-service mentors; admin is never granted at signup.
func registerRole(raw string) identity.Role {
	if identity.NormalizeRole(raw) == identity.RoleMentor {
		return identity.RoleMentor
	}
	return identity.RoleStudent
}

func nullableRaw(raw []byte) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

// limiterKey is the rate limiter identifier for a request.
func limiterKey(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
