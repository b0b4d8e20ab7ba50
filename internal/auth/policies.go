package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"valour-site/internal/logger"
)

// PublicPaths are the site pages anyone may read.
var PublicPaths = []string{
	"/",
	"/about",
	"/events",
	"/event",
	"/calendar",
	"/route",
	"/sponsors",
	"/photos",
	"/press",
	"/documents",
	"/register",
	"/contact",
	"/waiver",
	"/videos",
	"/privacy",
	"/blueberry-mountain",
	"/mpfbc",
	"/vision-valour-ride",
	"/fundraising",
	"/big-jim",
	"/heart-of-the-ride",
	"/p/*",
}

// DefaultPolicies returns the baseline rules: anonymous visitors read the
// site, submit the public forms and reach the sign-in pages; admins may do
// anything under /admin and inherit everything anonymous visitors can do.
func DefaultPolicies() [][]string {
	var policies [][]string
	for _, p := range PublicPaths {
		policies = append(policies, []string{RoleAnonymous, p, "GET"})
	}
	policies = append(policies,
		[]string{RoleAnonymous, "/contact", "POST"},
		[]string{RoleAnonymous, "/waiver", "POST"},
		[]string{RoleAnonymous, "/videos", "POST"},
		[]string{RoleAnonymous, "/auth/*", "*"},
		[]string{RoleAnonymous, "/functions/v1/send-waiver-notification", "*"},

		[]string{RoleAdmin, "/admin", "*"},
		[]string{RoleAdmin, "/admin/*", "*"},
	)
	return policies
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) error {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies() {
		has, err := e.HasPolicy(p)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(p); err != nil {
			log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			return err
		}
	}

	// Granting the 'admin' role all permissions of the 'anonymous' role.
	if has, _ := e.HasRoleForUser(RoleAdmin, RoleAnonymous); !has {
		if _, err := e.AddRoleForUser(RoleAdmin, RoleAnonymous); err != nil {
			log.Error(err, "Failed to add role 'admin' -> 'anonymous'")
			return err
		}
	}
	log.Info("Policy seeding complete.")
	return nil
}
