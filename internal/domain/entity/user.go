package entity

// UserState состояние пользователя в диалоге с ботом
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingPhoto UserState = "awaiting_photo" // Ожидание фото листа
	StateProcessing    UserState = "processing"     // Идёт анализ фото
)

// User представляет пользователя бота
type User struct {
	ID           int64     // Telegram User ID
	ChatID       int64     // Telegram Chat ID
	State        UserState // Текущее состояние пользователя
	LastRecordID string    // ID последней сохранённой проверки
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// IsBusy сообщает, что для пользователя уже идёт анализ
func (u *User) IsBusy() bool {
	return u.State == StateProcessing
}
