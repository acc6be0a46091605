package models

// Records are stored as JSON. Field names match the keyspace shared with
// other clients, so tags must stay camelCase.

type Settings struct {
	ThemeColor      string `json:"themeColor"`
	ThemeMode       string `json:"themeMode"`  // "dark" / "light"
	ThemeStyle      string `json:"themeStyle"` // "gradient" / "solid"
	ThemeBlur       bool   `json:"themeBlur"`
	ThemeAnimations bool   `json:"themeAnimations"`
	PrivateAccount  bool   `json:"privateAccount"`
	ShowBirthday    bool   `json:"showBirthday"`
	ShowOnline      bool   `json:"showOnline"`
	ReadReceipts    bool   `json:"readReceipts"`
}

// DefaultSettings are applied at registration.
func DefaultSettings() Settings {
	return Settings{
		ThemeColor:      "#3b82f6",
		ThemeMode:       "dark",
		ThemeStyle:      "gradient",
		ThemeBlur:       true,
		ThemeAnimations: true,
		PrivateAccount:  false,
		ShowBirthday:    true,
		ShowOnline:      true,
		ReadReceipts:    true,
	}
}

type User struct {
	ID       string  `json:"id"`
	Nickname string  `json:"nickname"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email"`
	// Password is the opaque hash. Read paths handed to generic callers
	// always clear it.
	Password string `json:"password,omitempty"`

	FullName  string  `json:"fullName"`
	Bio       string  `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
	Website   *string `json:"website"`
	Location  *string `json:"location"`
	Birthday  *string `json:"birthday"` // yyyy-MM-dd
	Gender    *string `json:"gender"`
	Role      string  `json:"role"`

	IsTester         bool     `json:"isTester"`
	TesterSince      *string  `json:"testerSince"`
	ExperimentsCount int      `json:"experimentsCount"`
	TestedFeatures   []string `json:"testedFeatures"`
	BugsFound        int      `json:"bugsFound"`
	TestTime         int      `json:"testTime"`
	Achievements     []string `json:"achievements"`
	TesterLevel      int      `json:"testerLevel"`
	XP               int      `json:"xp"`
	Level            int      `json:"level"`

	CreatedAt  string   `json:"createdAt"`  // RFC 3339
	LastActive int64    `json:"lastActive"` // epoch millis
	Settings   Settings `json:"settings"`
}

// Public returns a copy without the password hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

// UserPatch lists the fields a profile update may change; nil means keep.
// Nickname, phone and email are fixed after registration because they back
// the lookup indexes.
type UserPatch struct {
	FullName         *string   `json:"fullName,omitempty"`
	Bio              *string   `json:"bio,omitempty"`
	AvatarURL        *string   `json:"avatarUrl,omitempty"`
	Website          *string   `json:"website,omitempty"`
	Location         *string   `json:"location,omitempty"`
	Birthday         *string   `json:"birthday,omitempty"`
	Gender           *string   `json:"gender,omitempty"`
	Role             *string   `json:"role,omitempty"`
	IsTester         *bool     `json:"isTester,omitempty"`
	TesterSince      *string   `json:"testerSince,omitempty"`
	ExperimentsCount *int      `json:"experimentsCount,omitempty"`
	TestedFeatures   []string  `json:"testedFeatures,omitempty"`
	BugsFound        *int      `json:"bugsFound,omitempty"`
	TestTime         *int      `json:"testTime,omitempty"`
	Achievements     []string  `json:"achievements,omitempty"`
	TesterLevel      *int      `json:"testerLevel,omitempty"`
	XP               *int      `json:"xp,omitempty"`
	Level            *int      `json:"level,omitempty"`
	LastActive       *int64    `json:"lastActive,omitempty"`
	Settings         *Settings `json:"settings,omitempty"`
}

// Apply merges the patch over u and returns the result.
func (p UserPatch) Apply(u User) User {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setOptional := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&u.FullName, p.FullName)
	setString(&u.Bio, p.Bio)
	setOptional(&u.AvatarURL, p.AvatarURL)
	setOptional(&u.Website, p.Website)
	setOptional(&u.Location, p.Location)
	setOptional(&u.Birthday, p.Birthday)
	setOptional(&u.Gender, p.Gender)
	setString(&u.Role, p.Role)
	if p.IsTester != nil {
		u.IsTester = *p.IsTester
	}
	setOptional(&u.TesterSince, p.TesterSince)
	setInt(&u.ExperimentsCount, p.ExperimentsCount)
	if p.TestedFeatures != nil {
		u.TestedFeatures = append([]string(nil), p.TestedFeatures...)
	}
	setInt(&u.BugsFound, p.BugsFound)
	setInt(&u.TestTime, p.TestTime)
	if p.Achievements != nil {
		u.Achievements = append([]string(nil), p.Achievements...)
	}
	setInt(&u.TesterLevel, p.TesterLevel)
	setInt(&u.XP, p.XP)
	setInt(&u.Level, p.Level)
	if p.LastActive != nil {
		u.LastActive = *p.LastActive
	}
	if p.Settings != nil {
		u.Settings = *p.Settings
	}
	return u
}

type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"` // epoch millis
}

type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	UserNickname string    `json:"userNickname"`
	UserAvatar   *string   `json:"userAvatar"`
	Content      string    `json:"content"`
	Image        *string   `json:"image"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    int64     `json:"createdAt"` // epoch millis
}

// LikedBy reports whether userID is in the like set.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

type FriendRequest struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"fromUserId"`
	ToUserID   string              `json:"toUserId"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  int64               `json:"createdAt"`
	UpdatedAt  int64               `json:"updatedAt,omitempty"`
}

type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"` // "image" / "file" / ...
	Name string `json:"name,omitempty"`
}

type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chatId"`
	SenderID   string      `json:"senderId"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  int64       `json:"createdAt"` // epoch millis
}

type Chat struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	// LastMessage is a denormalized copy of the newest message, nil until
	// the first message is sent.
	LastMessage *Message `json:"lastMessage"`
	CreatedAt   int64    `json:"createdAt"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
