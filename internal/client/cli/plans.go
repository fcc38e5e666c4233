package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/session"
	"github.com/dmitrijs2005/fanpulse/internal/client/subscription"
)

func formatLimit(n int) string {
	if n == subscription.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func formatPrice(cents int) string {
	if cents == 0 {
		return "free"
	}
	return fmt.Sprintf("$%d.%02d/mo", cents/100, cents%100)
}

// Plans prints every plan with its limits, marking the active one.
func (a *App) Plans(ctx context.Context) error {
	current := a.resolver.Tier()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tPLAN\tPRICE\tARTISTS\tAPI CALLS/MO\tSTORAGE GB\tTEAM")
	for _, p := range a.resolver.AllPlans() {
		mark := ""
		if p.Tier == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", mark, p.Name, formatPrice(p.PriceCents),
			formatLimit(p.Limits.Artists), formatLimit(p.Limits.APICallsPerMonth),
			formatLimit(p.Limits.StorageGB), formatLimit(p.Limits.TeamMembers))
	}
	return tw.Flush()
}

// Tier prints the active tier, or switches to the one named in args.
func (a *App) Tier(ctx context.Context, args []string) error {
	if len(args) == 0 {
		p := a.resolver.CurrentPlan()
		fmt.Fprintf(a.out, "Current plan: %s (%s)\n", p.Name, p.Tier)
		return nil
	}

	name := strings.ToLower(args[0])
	if err := a.resolver.SetTier(ctx, name); err != nil {
		return err
	}
	if _, ok := subscription.ParseTier(name); !ok {
		fmt.Fprintf(a.out, "Unknown tier %q. Choose free, pro or enterprise.\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "Plan set to %s.\n", a.resolver.CurrentPlan().Name)
	return nil
}

// protect runs fn behind the session guard. A redirect has already been
// shown by the presenter and is not reported again.
func (a *App) protect(ctx context.Context, fn func(ctx context.Context, u *models.User) error) error {
	err := a.guard.Protect(ctx, fn)
	if errors.Is(err, session.ErrRedirected) {
		return nil
	}
	return err
}

// WhoAmI prints the verified profile.
func (a *App) WhoAmI(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context, u *models.User) error {
		fmt.Fprintf(a.out, "%s <%s>\n", u.DisplayName(), u.Email)
		fmt.Fprintf(a.out, "Plan: %s\n", a.resolver.CurrentPlan().Name)
		if u.IsVerified {
			fmt.Fprintln(a.out, "Email: verified")
		} else {
			fmt.Fprintln(a.out, "Email: not verified")
		}
		if store := session.FromContext(ctx); store != nil {
			if tok, ok := store.Credential(); ok {
				if exp, ok := session.CredentialExpiry(tok); ok {
					fmt.Fprintf(a.out, "Session expires: %s\n", exp.Local().Format(time.RFC1123))
				}
			}
		}
		return nil
	})
}

// Features lists every capability and whether the active plan grants it.
func (a *App) Features(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context, _ *models.User) error {
		r := a.resolverFrom(ctx)
		fmt.Fprintf(a.out, "Features on %s:\n", r.CurrentPlan().Name)
		for _, f := range subscription.AllFeatures {
			mark := "-"
			if r.HasFeature(f) {
				mark = "+"
			}
			fmt.Fprintf(a.out, "  %s %s\n", mark, f)
		}
		return nil
	})
}

// Artists reports the artist quota against the count in args.
func (a *App) Artists(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: artists <count>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("artist count must be a non-negative number, got %q", args[0])
	}

	return a.protect(ctx, func(ctx context.Context, _ *models.User) error {
		r := a.resolverFrom(ctx)
		p := r.CurrentPlan()
		fmt.Fprintf(a.out, "%s plan: %d of %s artist slots used, %s remaining.\n",
			p.Name, n, formatLimit(p.Limits.Artists), r.RemainingArtists(n))
		if r.CanAddArtist(n) {
			fmt.Fprintln(a.out, "You can track another artist.")
		} else {
			fmt.Fprintln(a.out, "Artist limit reached. Upgrade your plan to track more.")
		}
		return nil
	})
}

func (a *App) resolverFrom(ctx context.Context) *subscription.Resolver {
	if r := subscription.FromContext(ctx); r != nil {
		return r
	}
	return a.resolver
}
