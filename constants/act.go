package constants

// MaxAct is the highest act number of the proverb tale.
const MaxAct = 12

// ActP2SHAddresses maps each act to the transparent P2SH address that
// receives its inscription transactions.
var ActP2SHAddresses = map[int]string{
	1:  "t3VRbiCNhtiWjVcbSEhxnrThDqnYHPGegU2",
	2:  "t3bj1ifQRvdvgrg5d7a58HCjoPsrzRVWBen",
	3:  "t3dfk8Wnz9NCx2W3hLXixopwUHv8XFgoN6D",
	4:  "t3ZQBTvGzrjNQFMnXwLrL7ex9MiLh9cknv4",
	5:  "t3RvMXm9Bqiqi85Hz3DNYmjkeEGM7Cm3qFd",
	6:  "t3WPtezEEP3vqFREcDcAFngdR5Gbe1Aafyp",
	7:  "t3eju1hQKU2qNiJzsHZZ8aBcAy7ZpBFRiYF",
	8:  "t3UYAbyaHQsR5qCquvugxJ8DCJoDXSHmjV6",
	9:  "t3R9vniLa2HoRXXcf6reywZfwRJiHQVhoQJ",
	10: "t3NUNi662nPNcafpzR2GJFntGnCRx6TRaYu",
	11: "t3cTVUehSQom21SojguNPgVhRfzeUhkGc6M",
	12: "t3dVXHBYp2EAj9ZhkmwKMrwdSiRDD1suC51",
}

// ActTitles holds the spellbook title of each act.
var ActTitles = map[int]string{
	1:  "Venice, 1494 / The Drake's First Whisper",
	2:  "The Dual Ceremony / Sovereignty Divided to Be Extended",
	3:  "The Drake's Teaching / A Tale of Conditions",
	4:  "The Blade Alone / First Adventures",
	5:  "Light Armor / Multi-Site Coordination",
	6:  "Trust Graph Plane / Where Agents Gather",
	7:  "The Mirror That Never Completes / The Anti-Mirror",
	8:  "The Ancient Rule / Two-of-Three Locks",
	9:  "Zcash Shield / Forging Cryptographic Privacy",
	10: "Topology of Revelation / Triangle Geometry",
	11: "Balanced Spiral of Sovereignty / The Golden Ratio",
	12: "The Forgetting / Proverbiogenesis",
}

// ActTitle returns the title of act, or a generic label for unknown acts.
func ActTitle(act int) string {
	if title, ok := ActTitles[act]; ok {
		return title
	}
	return ActLabel(act)
}

// ActAddress returns the P2SH address of act, or "" for unknown acts.
func ActAddress(act int) string {
	return ActP2SHAddresses[act]
}

// ActAddresses returns the act addresses ordered by act number.
func ActAddresses() []string {
	addrs := make([]string, 0, len(ActP2SHAddresses))
	for act := 1; act <= MaxAct; act++ {
		if addr, ok := ActP2SHAddresses[act]; ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
