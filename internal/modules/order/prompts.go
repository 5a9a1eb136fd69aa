// README: Rider-facing texts and prompt builders.
package order

import (
	"fmt"
	"math"
	"strings"

	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/types"
)

const (
	textGreeting       = "Вітаємо у FlyTaxi! 🚕"
	textAskPhone       = "Поділіться, будь ласка, своїм номером телефону, щоб водій міг з вами зв'язатися."
	textAskPickup      = "Надішліть місце посадки: поділіться геолокацією."
	textAskDestination = "Куди їдемо? Напишіть адресу призначення або надішліть геолокацію."
	textAskWaypoints   = "Додайте проміжні зупинки (адресою або геолокацією, до %d) або натисніть «Готово»."
	textWaypointAdded  = "Зупинку додано (%d/%d)."
	textWaypointCap    = "Можна додати не більше %d зупинок. Натисніть «Готово», щоб продовжити."
	textRouteFailed    = "Не вдалося побудувати маршрут. Перевірте адреси та натисніть «Готово» ще раз або змініть адресу."
	textAddressMissing = "Не вдалося знайти адресу «%s». Уточніть її та спробуйте ще раз."
	textChooseClass    = "Оберіть клас авто:"
	textPriceUpdated   = "Ціну перераховано за поточним тарифом."
	textConfirm        = "Клас: %s\nВартість: %s\nПідтвердити замовлення?"
	textConfirmed      = "Замовлення %s підтверджено! Водій вже прямує до вас."
	textAskRating      = "Як пройшла поїздка? Оцініть водія від 1 до 5."
	textThanks         = "Дякуємо за оцінку! Поточний рейтинг водія: %.1f ⭐"
	textInvalidRating  = "Оцінка має бути цілим числом від 1 до 5."
	textInvalidPhone   = "Номер телефону виглядає некоректно."
	textInvalidPoint   = "Координати некоректні."
	textUnavailable    = "На жаль, зараз сервіс не приймає замовлень (нічна перерва 00:00–05:00). Спробуйте пізніше."
	textCancelled      = "Замовлення скасовано. Натисніть /start, щоб почати знову."
	textRestart        = "Почнімо спочатку. Натисніть «Нове замовлення»."
	textNotUnderstood  = "Не зрозумів вас."
	textSurcharge      = "Діє підвищений тариф ×%s."

	labelSendPhone     = "📱 Надіслати номер"
	labelSendLocation  = "📍 Надіслати геолокацію"
	labelWaypointsDone = "Готово"
	labelConfirm       = "✅ Підтвердити"
	labelChangeAddress = "✏️ Змінити адресу"
	labelRestart       = "🔄 Почати спочатку"
	labelNewOrder      = "🚕 Нове замовлення"
)

func text(t string) Prompt { return Prompt{Text: t} }

func askPhone() Prompt {
	return Prompt{Text: textAskPhone, Choices: []Choice{{ID: "contact", Label: labelSendPhone, Kind: ChoiceContact}}}
}

func askPickup() Prompt {
	return Prompt{Text: textAskPickup, Choices: []Choice{{ID: "location", Label: labelSendLocation, Kind: ChoiceLocation}}}
}

func askDestination() Prompt {
	return Prompt{Text: textAskDestination, Choices: []Choice{{ID: "location", Label: labelSendLocation, Kind: ChoiceLocation}}}
}

func askWaypoints() Prompt {
	return Prompt{
		Text: fmt.Sprintf(textAskWaypoints, MaxWaypoints),
		Choices: []Choice{
			{ID: OptionWaypointsDone, Label: labelWaypointsDone},
			{ID: OptionChangeAddress, Label: labelChangeAddress},
		},
	}
}

func waypointAdded(n int) Prompt {
	p := askWaypoints()
	p.Text = fmt.Sprintf(textWaypointAdded, n, MaxWaypoints)
	return p
}

func waypointCap() Prompt {
	p := askWaypoints()
	p.Text = fmt.Sprintf(textWaypointCap, MaxWaypoints)
	return p
}

func routeFailed(detail string) Prompt {
	p := askWaypoints()
	p.Text = textRouteFailed
	if detail != "" {
		p.Text = detail + "\n" + textRouteFailed
	}
	return p
}

func chooseClass(trip Trip, quotes []pricing.Quote, surge float64) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Маршрут: %.1f км, ~%d хв.\n", trip.DistanceKm, int(math.Ceil(trip.DurationMin)))
	if surge > 1 {
		b.WriteString(fmt.Sprintf(textSurcharge, formatSurge(surge)))
		b.WriteString("\n")
	}
	choices := make([]Choice, 0, len(quotes))
	for _, q := range quotes {
		fmt.Fprintf(&b, "%s: %s\n", q.Label, q.Price)
		choices = append(choices, Choice{ID: ClassOption(string(q.Class)), Label: q.Label + " · " + q.Price.String()})
	}
	b.WriteString(textChooseClass)
	return Prompt{Text: b.String(), Choices: choices}
}

func confirmOrder(label string, price types.Money) Prompt {
	return Prompt{
		Text: fmt.Sprintf(textConfirm, label, price),
		Choices: []Choice{
			{ID: OptionConfirm, Label: labelConfirm},
			{ID: OptionChangeAddress, Label: labelChangeAddress},
			{ID: OptionRestart, Label: labelRestart},
		},
	}
}

func askRating() Prompt {
	choices := make([]Choice, 0, 5)
	for i := 1; i <= 5; i++ {
		choices = append(choices, Choice{ID: RatingOption(i), Label: strings.Repeat("⭐", i)})
	}
	return Prompt{Text: textAskRating, Choices: choices}
}

func unavailable() Prompt { return text(textUnavailable) }

func cancelled(restart bool) Prompt {
	t := textCancelled
	if restart {
		t = textRestart
	}
	return Prompt{Text: t, Choices: []Choice{{ID: OptionStart, Label: labelNewOrder}}}
}

// promptFor re-asks whatever the stage is waiting for.
func promptFor(st Stage) Prompt {
	switch v := st.(type) {
	case AwaitingPhone:
		return askPhone()
	case AwaitingPickup:
		return askPickup()
	case AwaitingDestination:
		return askDestination()
	case AwaitingWaypoints:
		return askWaypoints()
	case AwaitingCarClass:
		return chooseClass(v.Trip, v.Quotes, v.Surge)
	case AwaitingConfirmation:
		return confirmOrder(v.Label, v.Price)
	case AwaitingRating:
		return askRating()
	default:
		return text(textCancelled)
	}
}

// correction prefixes the stage prompt with why the input was refused.
func correction(reason string, st Stage) Prompt {
	p := promptFor(st)
	p.Text = reason + "\n" + p.Text
	return p
}

func formatSurge(s float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", s), "0"), ".")
}
