package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/fxremit-go/pkg/remit"
	"github.com/pkg/errors"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":    loginCmd,
	"status":   statusCmd,
	"rates":    ratesCmd,
	"deals":    dealsCmd,
	"book":     bookCmd,
	"branches": branchesCmd,
	"purposes": purposesCmd,
	"logout":   logoutCmd,
}

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	user := fs.String("user", "", "Login id")
	password := fs.String("password", "", "Password")
	remember := fs.Bool("remember", false, "Remember credentials for silent login")
	silent := fs.Bool("silent", false, "Log in with remembered credentials")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		res *remit.LoginResult
		err error
	)
	if *silent {
		res, err = a.client.Auth.SilentLogin(ctx)
	} else {
		res, err = a.client.Auth.Login(ctx, remit.Credentials{UserID: *user, Password: *password}, *remember)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", displayName(res))
	return nil
}

func displayName(res *remit.LoginResult) string {
	for _, field := range []string{"C_Name", "Name", "FullName"} {
		if name := res.Profile.String(field); name != "" {
			return name
		}
	}
	if res.CustomerRef != "" {
		return res.CustomerRef
	}
	return "customer"
}

func statusCmd(ctx context.Context, a *app, args []string) error {
	if !a.client.Auth.IsLoggedIn(ctx) {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	profile, err := a.client.Auth.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in (customer %s)\n", profile.String(remit.ProfileCustomerRef))
	return nil
}

func ratesCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "rates")
	currency := fs.String("currency", "", "Currency code filter")
	branch := fs.String("branch", "", "Branch code filter")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rates, err := a.client.Rates.List(ctx, &remit.RatesFilter{CurrencyCode: *currency, BranchCode: *branch})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, rates)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tBUY\tSELL\tSPREAD")
	for _, r := range rates {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\n", r.CurrencyCode, r.CurrencyName, r.BuyRate, r.SellRate, r.Spread())
	}
	return tw.Flush()
}

func dealsCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "deals")
	from := fs.String("from", "", "Start date (YYYY-MM-DD)")
	to := fs.String("to", "", "End date (YYYY-MM-DD)")
	status := fs.String("status", "", "Deal status filter")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := &remit.DealsFilter{Status: *status}
	var err error
	if filter.From, err = optionalDate(*from); err != nil {
		return errors.Wrap(err, "invalid -from")
	}
	if filter.To, err = optionalDate(*to); err != nil {
		return errors.Wrap(err, "invalid -to")
	}

	deals, err := a.client.Deals.List(ctx, filter)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, deals)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tDATE\tTYPE\tCCY\tAMOUNT\tRATE\tSTATUS")
	for _, d := range deals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.4f\t%s\n", d.DealRef, d.DealDate, d.DealType, d.CurrencyCode, d.Amount, d.Rate, d.Status)
	}
	return tw.Flush()
}

func optionalDate(s string) (*remit.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := remit.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func bookCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "book")
	dealType := fs.String("type", "", "BUY or SELL")
	currency := fs.String("currency", "", "Currency code")
	amount := fs.Float64("amount", 0, "Foreign currency amount")
	rateValue := fs.Float64("rate", 0, "Agreed rate; 0 uses the board rate")
	branch := fs.String("branch", "", "Branch code")
	purpose := fs.String("purpose", "", "Purpose code")
	remarks := fs.String("remarks", "", "Free text remarks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deal, err := a.client.Deals.Book(ctx, &remit.DealRequest{
		DealType:     remit.DealType(strings.ToUpper(*dealType)),
		CurrencyCode: *currency,
		Amount:       *amount,
		Rate:         *rateValue,
		BranchCode:   *branch,
		PurposeCode:  *purpose,
		Remarks:      *remarks,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Booked deal %s: %s %.2f %s at %.4f\n", deal.DealRef, deal.DealType, deal.Amount, deal.CurrencyCode, deal.Rate)
	return nil
}

func branchesCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "branches")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	branches, err := a.client.Branches.List(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, branches)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tCITY\tHOURS")
	for _, b := range branches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.BranchCode, b.BranchName, b.City, b.OpeningHours)
	}
	return tw.Flush()
}

func purposesCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "purposes")
	txType := fs.String("type", "", "Transaction type filter")
	category := fs.String("category", "", "Category filter")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	purposes, err := a.client.Purposes.List(ctx, &remit.PurposesFilter{TransactionType: *txType, Category: *category})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, purposes)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tDESCRIPTION\tCATEGORY")
	for _, p := range purposes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.PurposeCode, p.Description, p.Category)
	}
	return tw.Flush()
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "logout")
	forget := fs.Bool("forget", false, "Also forget remembered credentials")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.client.Auth.Logout(ctx, *forget); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
