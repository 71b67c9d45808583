package progress

// defaultSpinner is the spinner used by {{ spinner() }} when no name is given.
const defaultSpinner = "mini_dot"

// defaultBody is the template installed on jobs built without an explicit body.
const defaultBody = "{{ spinner() }} {{ message }}"

type spinnerDef struct {
	frames  []string
	frameMS int64 // milliseconds per frame
}

// Frame sets largely follow github.com/charmbracelet/bubbles/spinner.
var spinners = map[string]spinnerDef{
	"line":      {[]string{"|", "/", "-", "\\"}, 200},
	"dot":       {[]string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}, 200},
	"mini_dot":  {[]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}, 200},
	"jump":      {[]string{"⢄", "⢂", "⢁", "⡁", "⡈", "⡐", "⡠"}, 200},
	"pulse":     {[]string{"█", "▓", "▒", "░"}, 200},
	"points":    {[]string{"∙∙∙", "●∙∙", "∙●∙", "∙∙●"}, 200},
	"globe":     {[]string{"🌍", "🌎", "🌏"}, 400},
	"moon":      {[]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}, 400},
	"monkey":    {[]string{"🙈", "🙉", "🙊"}, 400},
	"meter":     {[]string{"▱▱▱", "▰▱▱", "▰▰▱", "▰▰▰", "▰▰▱", "▰▱▱", "▱▱▱"}, 400},
	"hamburger": {[]string{"☱", "☲", "☴", "☲"}, 200},
	"ellipsis":  {[]string{"   ", ".  ", ".. ", "..."}, 200},

	"arrow":    {[]string{"←", "↖", "↑", "↗", "→", "↘", "↓", "↙"}, 200},
	"triangle": {[]string{"◢", "◣", "◤", "◥"}, 200},
	"square":   {[]string{"◰", "◳", "◲", "◱"}, 200},
	"circle":   {[]string{"◴", "◷", "◶", "◵"}, 200},

	"bounce":     {[]string{"⠁", "⠂", "⠄", "⠂"}, 200},
	"arc":        {[]string{"◜", "◠", "◝", "◞", "◡", "◟"}, 200},
	"box_bounce": {[]string{"▖", "▘", "▝", "▗"}, 200},

	"star":   {[]string{"✶", "✸", "✹", "✺", "✹", "✷"}, 200},
	"hearts": {[]string{"💛", "💙", "💜", "💚", "❤️"}, 400},
	"clock":  {[]string{"🕐", "🕑", "🕒", "🕓", "🕔", "🕕", "🕖", "🕗", "🕘", "🕙", "🕚", "🕛"}, 200},

	"grow_horizontal": {[]string{"▏", "▎", "▍", "▌", "▋", "▊", "▉", "█", "▉", "▊", "▋", "▌", "▍", "▎"}, 200},
	"grow_vertical":   {[]string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█", "▇", "▆", "▅", "▄", "▃", "▂"}, 200},

	"runner":  {[]string{"🚶", "🏃"}, 400},
	"oranges": {[]string{"🍊", "🍋", "🍇", "🍉"}, 400},
	"smiley":  {[]string{"😀", "😬", "😁", "😂", "🤣", "😂", "😁", "😬"}, 400},
}

// spinnerFrame picks the frame for the named spinner at the given animation
// time. Unknown names fall back to the default spinner.
func spinnerFrame(name string, elapsedMS int64) string {
	def, ok := spinners[name]
	if !ok {
		def = spinners[defaultSpinner]
	}
	idx := (elapsedMS / def.frameMS) % int64(len(def.frames))
	return def.frames[idx]
}
