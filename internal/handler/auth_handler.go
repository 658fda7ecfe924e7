package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/closetlog/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup 创建账号并直接登录。
func (a *API) Signup(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}
	if len(payload.Password) < 6 {
		respondError(c, http.StatusBadRequest, "密码至少 6 位")
		return
	}

	user, err := db.CreateUser(a.db, payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, db.ErrUserExists) {
			respondError(c, http.StatusConflict, "用户名已被占用")
			return
		}
		respondError(c, http.StatusBadRequest, "注册失败")
		return
	}

	if !startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 校验用户名密码并写入会话。
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	user, err := db.Authenticate(a.db, payload.Username, payload.Password)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[auth] login %q failed: %v", payload.Username, err)
		}
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	if !startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout 清空会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

// CurrentUser 返回当前登录用户。
func (a *API) CurrentUser(c *gin.Context) {
	var user db.User
	if err := a.db.WithContext(c.Request.Context()).First(&user, currentUserID(c)).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthRequired 校验会话，并把用户 ID 写入上下文；未登录返回 401。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(contextUserIDKey).(uint)
		if !ok || userID == 0 {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func startSession(c *gin.Context, user *db.User) bool {
	session := sessions.Default(c)
	session.Set(contextUserIDKey, user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return false
	}
	return true
}
