package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// prompt is the question asked on entering a state.
type prompt struct {
	message     string
	suggestions []string
}

const welcomeMessage = `Welcome to ParcelPipe!

I'll collect the details of your packages one question at a time.

You can:
- Add several packages with full details
- Answer naturally ("small box", "10kg", "express")
- Say "same as last" to copy a value from the previous package
- Save templates for items you ship often
- View a summary of your packages at any time

Would you like to add your first package?

Commands: help, summary, finish, cancel`

const helpMessage = `Help & Commands:

Navigation:
- "help" shows this message
- "summary" lists your packages
- "finish" completes the session and hands off your packages
- "cancel" clears the session
- "pause" saves the session so you can resume later
- "export" requests an export of your packages

Shortcuts:
- "same as last" copies the value from your previous package
- "skip" leaves an optional field blank
- "edit" changes the current package
- "use template <name>" / "save as template <name>"

Examples:
- "small box" for package type
- "10 x 5 x 3 cm" for dimensions
- "5 kg" for weight
- "express" for priority`

const retryHint = `You can also type "skip" to leave this field blank, "help" for assistance, or "cancel" to start over.`

const packageTypeQuestion = `What type of package are you shipping?

Options:
- Box (standard cardboard box)
- Envelope (documents or letters)
- Crate (wooden crate)
- Pallet (large pallet)
- Tube (cylindrical tube)
- Other

You can also describe it naturally, like "small box" or "large envelope".`

var prompts = map[models.ConversationState]prompt{
	models.StateAskingPackageType: {
		message:     "Great! Let's start with the package type.\n\n" + packageTypeQuestion,
		suggestions: []string{"Box", "Envelope", "Crate", "Pallet"},
	},
	models.StateAskingDimensions: {
		message: `Now, what are the dimensions?

Format: Length x Width x Height Unit
Example: "10 x 5 x 3 cm" or "12 x 8 x 6 inches"

Or type "same as last" to reuse the previous package's dimensions.`,
	},
	models.StateAskingWeight: {
		message: `What's the weight of this package?

Include the unit (kg, lbs, g, oz)
Example: "5 kg", "10 lbs", "500 g"

Or type "same as last" to reuse the previous weight.`,
	},
	models.StateAskingFragile: {
		message:     "Is this package fragile? (yes/no)",
		suggestions: []string{"Yes", "No"},
	},
	models.StateAskingPriority: {
		message: `What's the shipping priority?

Options:
- Standard (regular delivery)
- Express (faster delivery)
- Overnight (next day)
- Same Day (same day delivery)

Or type "same as last".`,
		suggestions: []string{"Standard", "Express", "Overnight", "Same Day"},
	},
	models.StateAskingDestination: {
		message: `Where is this package being shipped to?

Provide the full address, either on one line:
123 Main Street, Springfield, IL, 62701, USA
or on separate lines:
Street address
City, State
Postal code Country

Or type "same as last".`,
	},
	models.StateAskingSender: {
		message: `Who is sending this package?

Name (required), email and phone (optional)
Examples:
- "John Doe"
- "Jane Smith, jane@email.com, +1234567890"

Or type "skip" to leave blank, or "same as last" to reuse the previous sender.`,
		suggestions: []string{"Skip", "Same as last"},
	},
	models.StateAskingSpecialInstructions: {
		message:     `Any special handling instructions? (or type "skip")`,
		suggestions: []string{"Skip"},
	},
	models.StateAskingValue: {
		message:     "What is the estimated value of the package contents? (or type \"skip\")\nExample: \"100\", \"$250.50\", \"80 EUR\"",
		suggestions: []string{"Skip"},
	},
	models.StateAskingInsurance: {
		message:     `Would you like to add insurance for this package? (yes/no, or "skip")`,
		suggestions: []string{"Yes", "No", "Skip"},
	},
	models.StateAskingTrackingPrefs: {
		message: `Which tracking notifications would you like?

Choose any of: email, SMS, signature required
Example: "email and SMS", "no" for none, or "skip".`,
		suggestions: []string{"Email", "SMS", "Signature required", "Skip"},
	},
}

// editPrompts replace the regular question when a field is revisited from
// the summary.
var editPrompts = map[models.ConversationState]string{
	models.StateAskingPackageType:         "What type of package is this?",
	models.StateAskingDimensions:          "What are the new dimensions?\nExample: \"10 x 5 x 3 cm\"",
	models.StateAskingWeight:              "What's the new weight?\nExample: \"5 kg\", \"10 lbs\"",
	models.StateAskingDestination:         "What's the new destination address?",
	models.StateAskingSender:              "Who is the sender? (name, optional email and phone)",
	models.StateAskingSpecialInstructions: "What are the special handling instructions?",
	models.StateAskingValue:               "What is the estimated value of the package contents?",
}

// promptFor builds the reply that asks the question for state.
func promptFor(state models.ConversationState, editing bool, warnings []string) models.Reply {
	p := prompts[state]
	msg := p.message
	if editing {
		if m, ok := editPrompts[state]; ok {
			msg = m
		}
	}
	if msg == "" {
		msg = "Moving to the next step..."
	}
	return models.Reply{
		Message:     withWarnings(msg, warnings),
		Suggestions: p.suggestions,
		NeedsInput:  true,
		State:       state,
	}
}

func withWarnings(msg string, warnings []string) string {
	if len(warnings) == 0 {
		return msg
	}
	return strings.Join(warnings, "\n") + "\n\n" + msg
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// renderPackage formats one record for the confirmation summary.
func renderPackage(p *models.Package) string {
	var b strings.Builder
	b.WriteString("Package Summary:\n")
	b.WriteString("-----------------------------\n")
	fmt.Fprintf(&b, "Type: %s\n", p.Type)
	if p.Dimensions != nil {
		fmt.Fprintf(&b, "Dimensions: %s\n", p.Dimensions)
	}
	if p.Weight != nil {
		fmt.Fprintf(&b, "Weight: %s\n", p.Weight)
	}
	fmt.Fprintf(&b, "Fragile: %s\n", yesNo(p.IsFragile()))
	fmt.Fprintf(&b, "Priority: %s\n", p.Priority)
	if p.Destination != nil {
		fmt.Fprintf(&b, "Destination: %s\n", p.Destination.Short())
	}
	if p.Sender != nil {
		fmt.Fprintf(&b, "Sender: %s\n", p.Sender.Name)
	}
	if p.SpecialInstructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", p.SpecialInstructions)
	}
	if p.EstimatedValue != nil {
		fmt.Fprintf(&b, "Value: %.2f %s\n", *p.EstimatedValue, p.Currency)
	}
	fmt.Fprintf(&b, "Insurance: %s\n", yesNo(p.InsuranceRequired()))
	if t := p.Tracking; t != nil {
		fmt.Fprintf(&b, "Tracking: email=%s sms=%s signature=%s\n", yesNo(t.EmailNotifications), yesNo(t.SMSNotifications), yesNo(t.SignatureRequired))
	}
	b.WriteString("-----------------------------\n")
	b.WriteString("\nIs this information correct? (yes/no/edit)")
	return b.String()
}

// renderCommitted lists committed records for the summary command.
func renderCommitted(pkgs []models.Package) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your Packages (%d):\n", len(pkgs))
	b.WriteString("=============================\n\n")
	for i := range pkgs {
		p := &pkgs[i]
		fmt.Fprintf(&b, "Package %d:\n", i+1)
		fmt.Fprintf(&b, "  Type: %s\n", p.Type)
		if p.Dimensions != nil {
			fmt.Fprintf(&b, "  Dimensions: %s\n", p.Dimensions)
		}
		if p.Weight != nil {
			fmt.Fprintf(&b, "  Weight: %s\n", p.Weight)
		}
		fmt.Fprintf(&b, "  Priority: %s\n", p.Priority)
		if p.Destination != nil {
			fmt.Fprintf(&b, "  Destination: %s, %s\n", p.Destination.City, p.Destination.Country)
		}
		b.WriteString("\n")
	}
	b.WriteString("=============================")
	return b.String()
}

const editableFieldsMessage = `I can help you edit the following fields:

- Package type
- Dimensions
- Weight
- Fragile status
- Priority/Shipping
- Destination
- Sender information
- Special instructions
- Value
- Insurance
- Tracking

Which field would you like to edit? (or "back" to return to the summary)`
